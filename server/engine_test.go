package musicio_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	Mp "github.com/maroda/musicio/plugin"
	Ms "github.com/maroda/musicio/server"
	Mt "github.com/maroda/musicio/types"
	"go.uber.org/goleak"
)

func TestEngine_Process(t *testing.T) {
	t.Run("Renders and visualizes each active sound", func(t *testing.T) {
		o := Ms.NewOrchestrator(8, nil)
		out := &captureOutput{}
		vis := &captureVisual{}
		stats := &captureStats{}
		e := Ms.NewEngine(o, out, vis, Ms.EngineOptions{Stats: stats})

		got := e.Process(context.Background(), Ms.NewProximityReading(5, "front"), "front")
		assertInt(t, len(got), 1)
		assertInt(t, out.Len(), 1)
		assertInt(t, vis.proximity, 1)
		assertInt(t, vis.sound, 1)
		assertInt(t, stats.readings, 1)
		assertInt(t, stats.played, 1)
	})

	t.Run("Master volume scales what is played", func(t *testing.T) {
		o := Ms.NewOrchestrator(8, nil)
		o.SetMasterVolume(0.5)
		out := &captureOutput{}
		e := Ms.NewEngine(o, out, nil, Ms.EngineOptions{})

		e.Process(context.Background(), Ms.NewProximityReading(5, "front"), "front")
		assertFloat(t, out.Sounds()[0].Amplitude, 0.4)
	})

	t.Run("Output failures are counted and do not stop", func(t *testing.T) {
		o := Ms.NewOrchestrator(8, nil)
		out := &captureOutput{fail: true}
		e := Ms.NewEngine(o, out, nil, Ms.EngineOptions{})

		e.Process(context.Background(), Ms.NewProximityReading(5, "front"), "front")
		e.Process(context.Background(), Ms.NewProximityReading(20, "front"), "front")
		assertInt(t, int(e.Failed.Load()), 3)
	})

	t.Run("Panicking visualizer is contained", func(t *testing.T) {
		o := Ms.NewOrchestrator(8, nil)
		out := &captureOutput{}
		e := Ms.NewEngine(o, out, panicVisual{}, Ms.EngineOptions{})

		e.Process(context.Background(), Ms.NewProximityReading(5, "front"), "front")
		assertInt(t, out.Len(), 1)
	})

	t.Run("Harmony layers a triad", func(t *testing.T) {
		o := Ms.NewOrchestrator(8, nil)
		e := Ms.NewEngine(o, &captureOutput{}, nil, Ms.EngineOptions{Harmony: true})

		got := e.Process(context.Background(), Ms.NewProximityReading(5, "front"), "front")
		assertInt(t, len(got), 4)
	})

	t.Run("Recorder sees every event", func(t *testing.T) {
		o := Ms.NewOrchestrator(8, nil)
		e := Ms.NewEngine(o, &captureOutput{}, nil, Ms.EngineOptions{})
		rec := &captureRecorder{}
		e.AttachRecorder(rec)

		e.Process(context.Background(), Ms.NewProximityReading(5, "front"), "front")
		// proximity, four transitions, one sound
		assertInt(t, rec.Len(), 6)
	})
}

func TestEngine_Submit(t *testing.T) {
	o := Ms.NewOrchestrator(8, nil)
	stats := &captureStats{}
	e := Ms.NewEngine(o, &captureOutput{}, nil, Ms.EngineOptions{Buffer: 1, Stats: stats})

	assertBool(t, e.Submit(Ms.NewProximityReading(5, "front"), "front"), true)
	assertBool(t, e.Submit(Ms.NewProximityReading(6, "front"), "front"), false)
	assertBool(t, e.Submit(Ms.NewProximityReading(0, "front"), "front"), false)
	assertInt(t, int(e.Dropped.Load()), 2)
	assertInt(t, stats.dropped, 2)
}

func TestEngine_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	o := Ms.NewOrchestrator(8, nil)
	out := &captureOutput{}
	e := Ms.NewEngine(o, out, nil, Ms.EngineOptions{})
	in := &manualInput{}
	e.AttachInput(in, "front")

	assertError(t, e.Start(context.Background()), nil)
	assertBool(t, in.IsRunning(), true)

	in.Send(5)
	in.Send(-2)
	in.Send(25)

	deadline := time.Now().Add(2 * time.Second)
	for out.Len() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// 5cm plays once, 25cm plays both live tracks
	assertInt(t, out.Len(), 3)

	e.Stop()
	e.Stop()
	assertBool(t, in.IsRunning(), false)
	assertBool(t, e.IsRunning(), false)
}

func TestEngine_StartStopConcurrent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	o := Ms.NewOrchestrator(8, nil)
	e := Ms.NewEngine(o, &captureOutput{}, nil, Ms.EngineOptions{})
	e.AttachInput(&manualInput{}, "front")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			e.Stop()
		}()
	}
	wg.Wait()

	e.Stop()
	assertBool(t, e.IsRunning(), false)

	// still usable after the churn
	assertError(t, e.Start(context.Background()), nil)
	assertBool(t, e.IsRunning(), true)
	e.Stop()
}

func TestEngine_StartFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	o := Ms.NewOrchestrator(8, nil)
	e := Ms.NewEngine(o, &captureOutput{}, nil, Ms.EngineOptions{})
	e.AttachInput(&manualInput{startErr: errors.New("no such device")}, "front")

	assertGotError(t, e.Start(context.Background()))
	assertBool(t, e.IsRunning(), false)
}

func TestEngine_ContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	e := Ms.NewEngine(Ms.NewOrchestrator(8, nil), &captureOutput{}, nil, Ms.EngineOptions{})
	assertError(t, e.Start(ctx), nil)
	cancel()
	e.Stop()
}

// Fakes //

type captureOutput struct {
	mu     sync.Mutex
	sounds []Mt.SoundCommand
	fail   bool
}

func (c *captureOutput) Initialize() error { return nil }
func (c *captureOutput) PlaySound(s Mt.SoundCommand) error {
	if c.fail {
		return errors.New("speaker unplugged")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sounds = append(c.sounds, s)
	return nil
}
func (c *captureOutput) Stop() error       { return nil }
func (c *captureOutput) IsAvailable() bool { return true }
func (c *captureOutput) Type() string      { return "capture" }

func (c *captureOutput) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sounds)
}

func (c *captureOutput) Sounds() []Mt.SoundCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Mt.SoundCommand(nil), c.sounds...)
}

type captureVisual struct {
	proximity, sound int
}

func (c *captureVisual) VisualizeProximity(Mt.ProximityReading) { c.proximity++ }
func (c *captureVisual) VisualizeSound(Mt.SoundCommand)         { c.sound++ }

type panicVisual struct{}

func (panicVisual) VisualizeProximity(Mt.ProximityReading) { panic("canvas gone") }
func (panicVisual) VisualizeSound(Mt.SoundCommand)         { panic("canvas gone") }

type captureStats struct {
	mu                        sync.Mutex
	readings, dropped, played int
}

func (c *captureStats) RecReading(string) { c.mu.Lock(); c.readings++; c.mu.Unlock() }
func (c *captureStats) RecDropped(string) { c.mu.Lock(); c.dropped++; c.mu.Unlock() }
func (c *captureStats) RecPlayed(string, error) {
	c.mu.Lock()
	c.played++
	c.mu.Unlock()
}
func (c *captureStats) RecProcessTimer(time.Time) {}

type captureRecorder struct {
	mu     sync.Mutex
	events []Mt.DomainEvent
}

func (c *captureRecorder) Record(e Mt.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}
func (c *captureRecorder) Flush() error { return nil }
func (c *captureRecorder) Close() error { return nil }
func (c *captureRecorder) Type() string { return "capture" }
func (c *captureRecorder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type manualInput struct {
	mu       sync.Mutex
	cb       func(Mt.ProximityReading)
	running  bool
	startErr error
}

func (m *manualInput) Start() error {
	if m.startErr != nil {
		return m.startErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	return nil
}

func (m *manualInput) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

func (m *manualInput) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *manualInput) RegisterCallback(cb func(Mt.ProximityReading)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cb = cb
}

func (m *manualInput) Send(d float64) {
	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	cb(Ms.NewProximityReading(d, "front"))
}

var _ Mp.InputPort = (*manualInput)(nil)
var _ Mp.OutputPort = (*captureOutput)(nil)
