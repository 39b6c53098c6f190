//go:build !notone

package plugin

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto/v2"
	Mt "github.com/maroda/musicio/types"
)

// ToneOutput synthesizes a sine per SoundCommand on the local sound card
type ToneOutput struct {
	SampleRate int
	Volume     float64
	ctx        *oto.Context
	ready      chan struct{}
	WG         sync.WaitGroup
	available  atomic.Bool
}

func NewToneOutput(rate int) *ToneOutput {
	if rate <= 0 {
		rate = ToneSampleRate
	}
	return &ToneOutput{SampleRate: rate, Volume: 1}
}

// Initialize opens the audio device and waits for it to be ready
func (to *ToneOutput) Initialize() error {
	ctx, ready, err := oto.NewContext(to.SampleRate, toneChannels, oto.FormatFloat32LE)
	if err != nil {
		slog.Error("Could not open audio device", slog.Any("error", err))
		return fmt.Errorf("audio context: %w", err)
	}
	to.ctx = ctx
	to.ready = ready

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		return fmt.Errorf("audio device not ready")
	}

	to.available.Store(true)
	slog.Info("Tone output ready", slog.Int("sampleRate", to.SampleRate))
	return nil
}

func (to *ToneOutput) PlaySound(cmd Mt.SoundCommand) error {
	if !to.available.Load() {
		return ErrNotInitialized
	}

	samples := SineSamples(cmd.Frequency, cmd.Duration, cmd.Amplitude, to.SampleRate)
	if len(samples) == 0 {
		return nil
	}

	to.WG.Add(1)
	go func() {
		defer to.WG.Done()
		player := to.ctx.NewPlayer(&sampleReader{data: samples})
		player.SetVolume(clampF(to.Volume, 0, 1))
		player.Play()
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			slog.Debug("Player close", slog.Any("error", err))
		}
	}()
	return nil
}

// Stop lets queued notes finish
func (to *ToneOutput) Stop() error {
	to.available.Store(false)
	to.WG.Wait()
	return nil
}

func (to *ToneOutput) IsAvailable() bool { return to.available.Load() }

func (to *ToneOutput) Type() string { return "tone" }
