package plugin

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	Mt "github.com/maroda/musicio/types"
)

// LineInput reads one sample per line from a board or a file.
// Lines that do not parse, or distances <= 0, never leave this adapter.
type LineInput struct {
	MU        sync.Mutex
	SourceID  string
	Path      string    // device or file opened on Start, empty uses Reader
	Reader    io.Reader // used when Path is empty
	Transform LineTransformer
	Smoother  *EMAPlugin // optional
	WG        sync.WaitGroup
	Dropped   atomic.Uint64
	callback  func(Mt.ProximityReading)
	closer    io.Closer
	running   atomic.Bool
}

// NewLineInput reads from r, typically os.Stdin or a test string
func NewLineInput(source string, r io.Reader) *LineInput {
	return &LineInput{
		SourceID:  source,
		Reader:    r,
		Transform: NewAutoTransformer("distance"),
	}
}

// NewDeviceInput opens path on Start, e.g. /dev/ttyACM0 already set to 9600 baud
func NewDeviceInput(source, path string) *LineInput {
	return &LineInput{
		SourceID:  source,
		Path:      path,
		Transform: NewAutoTransformer("distance"),
	}
}

func (li *LineInput) RegisterCallback(cb func(Mt.ProximityReading)) {
	li.MU.Lock()
	defer li.MU.Unlock()
	li.callback = cb
	slog.Info("Callback registered for line input", slog.String("source", li.SourceID))
}

// Start opens the source and begins the read loop
func (li *LineInput) Start() error {
	if li.running.Load() {
		slog.Warn("Line input already running", slog.String("source", li.SourceID))
		return nil
	}

	reader := li.Reader
	if li.Path != "" {
		f, err := os.Open(li.Path)
		if err != nil {
			slog.Error("Could not open input device",
				slog.String("path", li.Path),
				slog.Any("error", err))
			return fmt.Errorf("open input %s: %w", li.Path, err)
		}
		li.closer = f
		reader = f
	}
	if reader == nil {
		return fmt.Errorf("line input %s has no reader", li.SourceID)
	}

	li.running.Store(true)
	li.WG.Add(1)
	go func() {
		defer li.WG.Done()
		defer li.running.Store(false)
		li.readLoop(reader)
	}()

	slog.Info("Line input started", slog.String("source", li.SourceID), slog.String("path", li.Path))
	return nil
}

func (li *LineInput) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if !li.running.Load() {
			return
		}
		li.ProcessLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil && li.running.Load() {
		slog.Error("Problem scanning input",
			slog.String("source", li.SourceID),
			slog.Any("error", err))
	}
}

// ProcessLine parses, filters, and delivers one line.
// It returns false when the line was dropped.
func (li *LineInput) ProcessLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}

	now := time.Now()
	d, err := li.Transform.Transform(line, now)
	if err != nil {
		slog.Warn("Invalid data received",
			slog.String("source", li.SourceID),
			slog.String("line", line),
			slog.Any("error", err))
		li.Dropped.Add(1)
		return false
	}
	if math.IsNaN(d) || d <= 0 || d > 1e9 {
		li.Dropped.Add(1)
		return false
	}
	if li.Smoother != nil {
		d = li.Smoother.Smooth(li.SourceID, d, now)
	}

	li.MU.Lock()
	cb := li.callback
	li.MU.Unlock()
	if cb == nil {
		return false
	}

	cb(Mt.ProximityReading{Distance: d, SourceID: li.SourceID, Timestamp: now})
	return true
}

// Stop ends the loop. A device is closed to unblock the read,
// a plain reader finishes at its next line or EOF.
func (li *LineInput) Stop() error {
	slog.Info("Stopping line input", slog.String("source", li.SourceID))
	wasRunning := li.running.Swap(false)

	if li.closer != nil {
		if err := li.closer.Close(); err != nil {
			slog.Error("Close Error", slog.Any("error", err))
		}
		li.closer = nil
		if wasRunning {
			li.WG.Wait()
		}
	}
	return nil
}

func (li *LineInput) IsRunning() bool { return li.running.Load() }

func (li *LineInput) Type() string { return "line" }
