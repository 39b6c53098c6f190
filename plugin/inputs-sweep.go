package plugin

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	Mt "github.com/maroda/musicio/types"
)

// SweepInput walks a visitor toward the sensor and away again,
// for running the installation without a board attached.
type SweepInput struct {
	MU       sync.Mutex
	SourceID string
	Min      float64
	Max      float64
	Step     float64
	Interval time.Duration
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
	current  float64
	dir      float64
	callback func(Mt.ProximityReading)
	running  atomic.Bool
}

func NewSweepInput(source string, interval time.Duration) *SweepInput {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &SweepInput{
		SourceID: source,
		Min:      2,
		Max:      60,
		Step:     2,
		Interval: interval,
		current:  60,
		dir:      -1,
	}
}

func (si *SweepInput) RegisterCallback(cb func(Mt.ProximityReading)) {
	si.MU.Lock()
	defer si.MU.Unlock()
	si.callback = cb
}

func (si *SweepInput) Start() error {
	if si.running.Swap(true) {
		return nil
	}
	si.Ticker = time.NewTicker(si.Interval)
	si.StopChan = make(chan struct{})

	si.WG.Add(1)
	go func() {
		defer si.WG.Done()
		for {
			select {
			case <-si.Ticker.C:
				si.Next()
			case <-si.StopChan:
				return
			}
		}
	}()

	slog.Info("Sweep input started",
		slog.String("source", si.SourceID),
		slog.Duration("interval", si.Interval))
	return nil
}

// Next emits the current distance and advances, bouncing between Min and Max
func (si *SweepInput) Next() float64 {
	si.MU.Lock()
	d := si.current
	si.current += si.dir * si.Step
	if si.current <= si.Min {
		si.current = si.Min
		si.dir = 1
	}
	if si.current >= si.Max {
		si.current = si.Max
		si.dir = -1
	}
	cb := si.callback
	si.MU.Unlock()

	if cb != nil {
		cb(Mt.ProximityReading{Distance: d, SourceID: si.SourceID, Timestamp: time.Now()})
	}
	return d
}

func (si *SweepInput) Stop() error {
	if !si.running.Swap(false) {
		return nil
	}
	si.Ticker.Stop()
	close(si.StopChan)
	si.WG.Wait()
	slog.Info("Sweep input stopped", slog.String("source", si.SourceID))
	return nil
}

func (si *SweepInput) IsRunning() bool { return si.running.Load() }

func (si *SweepInput) Type() string { return "sweep" }
