package plugin

import (
	"log/slog"
	"sync/atomic"

	Mt "github.com/maroda/musicio/types"
)

// LogOutput writes each sound to the structured log.
// Used headless and as the fallback when no device opens.
type LogOutput struct {
	Played    atomic.Uint64
	available atomic.Bool
}

func NewLogOutput() *LogOutput { return &LogOutput{} }

func (lo *LogOutput) Initialize() error {
	lo.available.Store(true)
	return nil
}

func (lo *LogOutput) PlaySound(cmd Mt.SoundCommand) error {
	if !lo.available.Load() {
		return ErrNotInitialized
	}
	lo.Played.Add(1)
	slog.Info("Sound",
		slog.Float64("frequency", cmd.Frequency),
		slog.Duration("duration", cmd.Duration),
		slog.Float64("amplitude", cmd.Amplitude))
	return nil
}

func (lo *LogOutput) Stop() error {
	lo.available.Store(false)
	return nil
}

func (lo *LogOutput) IsAvailable() bool { return lo.available.Load() }

func (lo *LogOutput) Type() string { return "log" }
