package musicio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	Mp "github.com/maroda/musicio/plugin"
	Mt "github.com/maroda/musicio/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultBuffer = 64

// Recorder receives engine metrics, obvy.StatsInternal implements it
type Recorder interface {
	RecReading(source string)
	RecDropped(source string)
	RecPlayed(output string, err error)
	RecProcessTimer(start time.Time)
}

type EngineOptions struct {
	Buffer  int      // readings queued before drops, default DefaultBuffer
	Stats   Recorder // optional
	Harmony bool     // layer a triad over every triggered sound
}

type inbound struct {
	reading Mt.ProximityReading
	source  string
}

type attachment struct {
	port   Mp.InputPort
	source string
}

// Engine carries readings from input ports into the orchestrator
// and renders what comes back.
// One worker goroutine is the only caller of ProcessProximity.
type Engine struct {
	MU       sync.Mutex
	Orch     *Orchestrator
	Output   Mp.OutputPort
	Visual   Mp.VisualizationPort
	Stats    Recorder
	Readings chan inbound
	Inputs   []attachment
	WG       sync.WaitGroup
	Dropped  atomic.Uint64
	Failed   atomic.Uint64
	Played   atomic.Uint64
	life     sync.Mutex // serializes Start and Stop
	stopChan chan struct{}
	running  atomic.Bool
	tracer   trace.Tracer
}

// NewEngine wires the core to its ports, visual may be nil
func NewEngine(o *Orchestrator, out Mp.OutputPort, visual Mp.VisualizationPort, opts EngineOptions) *Engine {
	if opts.Buffer < 1 {
		opts.Buffer = DefaultBuffer
	}
	e := &Engine{
		Orch:     o,
		Output:   out,
		Visual:   visual,
		Stats:    opts.Stats,
		Readings: make(chan inbound, opts.Buffer),
		tracer:   otel.Tracer("musicio/engine"),
	}

	if opts.Harmony {
		o.Bus.Register(func(ev Mt.DomainEvent) {
			if ev.Kind == Mt.SoundTriggered && ev.Sound != nil {
				o.ApplyHarmony(ev.Sound.Frequency)
			}
		})
	}

	return e
}

// AttachInput routes a port's readings to sourceID
func (e *Engine) AttachInput(in Mp.InputPort, sourceID string) {
	if sourceID == "" {
		sourceID = DefaultSource
	}
	e.Orch.RegisterSource(sourceID)
	in.RegisterCallback(func(r Mt.ProximityReading) {
		e.Submit(r, sourceID)
	})

	e.MU.Lock()
	e.Inputs = append(e.Inputs, attachment{port: in, source: sourceID})
	e.MU.Unlock()
}

// AttachRecorder persists every domain event
func (e *Engine) AttachRecorder(rec Mp.EventRecorder) {
	e.Orch.Bus.Register(func(ev Mt.DomainEvent) {
		if err := rec.Record(ev); err != nil {
			slog.Error("Could not record event",
				slog.String("recorder", rec.Type()),
				slog.Any("error", err))
		}
	})
}

// Submit queues a reading without blocking, a full queue drops it
func (e *Engine) Submit(r Mt.ProximityReading, sourceID string) bool {
	if !ValidDistance(r.Distance) {
		e.drop(sourceID)
		return false
	}
	select {
	case e.Readings <- inbound{reading: r, source: sourceID}:
		return true
	default:
		e.drop(sourceID)
		return false
	}
}

func (e *Engine) drop(sourceID string) {
	e.Dropped.Add(1)
	if e.Stats != nil {
		e.Stats.RecDropped(sourceID)
	}
}

// Start launches the worker and then every attached input
func (e *Engine) Start(ctx context.Context) error {
	e.life.Lock()
	defer e.life.Unlock()

	if e.running.Load() {
		return nil
	}
	e.stopChan = make(chan struct{})
	e.running.Store(true)

	e.WG.Add(1)
	go e.run(ctx, e.stopChan)

	e.MU.Lock()
	inputs := append([]attachment(nil), e.Inputs...)
	e.MU.Unlock()

	for _, a := range inputs {
		if err := a.port.Start(); err != nil {
			slog.Error("Input failed to start",
				slog.String("source", a.source),
				slog.Any("error", err))
			e.stop()
			return fmt.Errorf("start input %s: %w", a.source, err)
		}
	}

	slog.Info("Engine started", slog.Int("inputs", len(inputs)))
	return nil
}

func (e *Engine) run(ctx context.Context, stop <-chan struct{}) {
	defer e.WG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case in := <-e.Readings:
			e.Process(ctx, in.reading, in.source)
		}
	}
}

// Process handles one reading end to end on the calling goroutine
func (e *Engine) Process(ctx context.Context, r Mt.ProximityReading, sourceID string) []Mt.SoundCommand {
	start := time.Now()
	_, span := e.tracer.Start(ctx, "proximity",
		trace.WithAttributes(
			attribute.String("source", sourceID),
			attribute.Float64("distance", r.Distance)))
	defer span.End()

	if e.Stats != nil {
		e.Stats.RecReading(sourceID)
		defer e.Stats.RecProcessTimer(start)
	}

	e.visualize(func(v Mp.VisualizationPort) { v.VisualizeProximity(r) })

	sounds := e.Orch.ProcessProximity(r, sourceID)
	span.SetAttributes(attribute.Int("sounds", len(sounds)))

	volume := e.Orch.Volume()
	for _, s := range sounds {
		s.Amplitude *= volume
		e.visualize(func(v Mp.VisualizationPort) { v.VisualizeSound(s) })
		if err := e.play(s); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "output failed")
		}
	}

	return sounds
}

func (e *Engine) play(s Mt.SoundCommand) error {
	if e.Output == nil {
		return nil
	}
	err := e.Output.PlaySound(s)
	if e.Stats != nil {
		e.Stats.RecPlayed(e.Output.Type(), err)
	}
	if err != nil {
		e.Failed.Add(1)
		slog.Error("Failed to play sound",
			slog.String("output", e.Output.Type()),
			slog.Any("error", err))
		return err
	}
	e.Played.Add(1)
	return nil
}

// visualize keeps a misbehaving visualizer away from the loop
func (e *Engine) visualize(f func(Mp.VisualizationPort)) {
	if e.Visual == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Visualizer panic", slog.Any("panic", r))
		}
	}()
	f(e.Visual)
}

// Stop halts inputs first, then the worker. Calling it twice is harmless.
func (e *Engine) Stop() {
	e.life.Lock()
	defer e.life.Unlock()
	e.stop()
}

func (e *Engine) stop() {
	if !e.running.Swap(false) {
		return
	}

	e.MU.Lock()
	inputs := append([]attachment(nil), e.Inputs...)
	e.MU.Unlock()
	for _, a := range inputs {
		if err := a.port.Stop(); err != nil {
			slog.Error("Input failed to stop",
				slog.String("source", a.source),
				slog.Any("error", err))
		}
	}

	close(e.stopChan)
	e.WG.Wait()
	slog.Info("Engine stopped",
		slog.Uint64("played", e.Played.Load()),
		slog.Uint64("dropped", e.Dropped.Load()))
}

func (e *Engine) IsRunning() bool { return e.running.Load() }
