package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	Md "github.com/maroda/musicio/display"
	Mo "github.com/maroda/musicio/obvy"
	Mp "github.com/maroda/musicio/plugin"
	Ms "github.com/maroda/musicio/server"
)

const (
	shutdownGrace = 5 * time.Second
	recorderBatch = 64
)

func main() {
	setupLogging()

	if err := run(); err != nil {
		slog.Error("musicio stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// setupLogging reads MUSICIO_LOG_FORMAT (json|text) and MUSICIO_LOG_LEVEL
func setupLogging() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(Ms.FillEnvVar("MUSICIO_LOG_LEVEL"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	// the terminal view owns stdout
	w := os.Stdout
	if Ms.FillEnvVar("MUSICIO_TUI") == "true" {
		w = os.Stderr
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if Ms.FillEnvVar("MUSICIO_LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func loadConfig(path string) (Ms.ConfigFile, error) {
	cf := Ms.DefaultConfig()
	if path != "ENOENT" {
		var err error
		cf, err = Ms.LoadConfigFileName(path)
		if err != nil {
			return cf, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cf.ApplyEnv()
	return cf, nil
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := Ms.FillEnvVar("MUSICIO_CONFIG")
	cf, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	slog.Info("musicio initializing",
		slog.String("config", configPath),
		slog.Int("capacity", cf.Capacity),
		slog.String("output", cf.Output),
		slog.Int("sources", len(cf.Sources)))

	shutdownTracing, err := Mo.InitTracing(ctx, Ms.FillEnvVar("MUSICIO_OTEL"))
	if err != nil {
		slog.Error("Tracing not started", slog.Any("error", err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Error("Tracing shutdown", slog.Any("error", err))
		}
	}()

	stats := Mo.NewStatsInternal()
	orch := Ms.NewOrchestrator(cf.Capacity, Ms.NewEventBus())
	cf.ApplyLive(orch)

	output, err := Md.InitOutput(cf.Output, Mp.OutputConfig{
		MIDIPort:    cf.MIDIPort,
		MIDIChannel: uint8(cf.MIDIChannel),
		SampleRate:  Mp.ToneSampleRate,
	})
	if output == nil {
		return fmt.Errorf("no output available: %w", err)
	}
	defer output.Stop()

	game := Ms.NewGameSession(Mp.NewLogActuator())
	game.Printer = Mp.NewLogPrinter()
	view, err := Md.NewView(orch, game, stats)
	if err != nil {
		return err
	}
	view.SetOutput(output)
	orch.Bus.Register(view.InviteListener())

	engine := Ms.NewEngine(orch, output, view, Ms.EngineOptions{
		Stats:   stats,
		Harmony: Ms.FillEnvVar("MUSICIO_HARMONY") == "true",
	})

	if cf.RecorderPath != "" {
		rec, err := Mp.NewBadgerRecorder(cf.RecorderPath, recorderBatch)
		if err != nil {
			return fmt.Errorf("open recorder: %w", err)
		}
		defer rec.Close()
		engine.AttachRecorder(rec)
	}

	for _, sc := range cf.Sources {
		in, err := buildInput(sc)
		if err != nil {
			return err
		}
		engine.AttachInput(in, sc.ID)
	}

	watchMetrics(stats, orch, engine)

	if _, err := view.Serve(cf.Listen); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := view.Shutdown(sctx); err != nil {
			slog.Error("Dashboard shutdown", slog.Any("error", err))
		}
	}()

	supervisor := view.NewTickSupervisor(Md.DefaultTick)
	supervisor.Start()
	defer supervisor.Stop()

	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop()

	watcher := Ms.NewConfigWatcher(configPath, func(next Ms.ConfigFile) {
		next.ApplyLive(orch)
	})
	if configPath != "ENOENT" {
		if err := watcher.Start(); err != nil {
			slog.Error("Config reload disabled", slog.Any("error", err))
		}
	}
	defer watcher.Stop()

	if Ms.FillEnvVar("MUSICIO_TUI") == "true" {
		return runTerminal(ctx, stop, view)
	}

	<-ctx.Done()
	slog.Info("Shutting down")
	return nil
}

// buildInput makes the port for one configured source
func buildInput(sc Ms.SourceConfig) (Mp.InputPort, error) {
	var line *Mp.LineInput

	switch sc.Kind {
	case "sweep", "":
		return Mp.NewSweepInput(sc.ID, 0), nil
	case "device":
		if sc.Path == "" {
			return nil, fmt.Errorf("source %s: device needs a path", sc.ID)
		}
		line = Mp.NewDeviceInput(sc.ID, sc.Path)
	case "stdin":
		line = Mp.NewLineInput(sc.ID, os.Stdin)
	default:
		return nil, fmt.Errorf("source %s: unknown kind %q", sc.ID, sc.Kind)
	}

	format := sc.Format
	if format == "" {
		format = "auto"
	}
	tr, err := Mp.TransformerLookup(format, sc.Key)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", sc.ID, err)
	}
	line.Transform = tr

	if sc.Smoothing > 0 {
		line.Smoother = Mp.NewEMAPlugin(sc.Smoothing, 2*time.Second)
	}
	return line, nil
}

// watchMetrics exposes counters owned by the core
func watchMetrics(stats *Mo.StatsInternal, orch *Ms.Orchestrator, engine *Ms.Engine) {
	err := errors.Join(
		stats.WatchGauge("active_tracks", "Live tracks in the orchestrator",
			func() float64 { return float64(orch.Len()) }),
		stats.WatchCounter("tracks_admitted_total", "Tracks admitted",
			func() float64 { return float64(orch.Counters.Admitted.Load()) }),
		stats.WatchCounter("tracks_rejected_total", "Tracks rejected at capacity",
			func() float64 { return float64(orch.Counters.Rejected.Load()) }),
		stats.WatchCounter("tracks_evicted_total", "Tracks evicted by a higher priority",
			func() float64 { return float64(orch.Counters.Evicted.Load()) }),
		stats.WatchCounter("tracks_expired_total", "Tracks that ran their duration",
			func() float64 { return float64(orch.Counters.Expired.Load()) }),
		stats.WatchCounter("engine_failed_total", "Sounds the output refused",
			func() float64 { return float64(engine.Failed.Load()) }),
	)
	if err != nil {
		slog.Error("Some metrics not registered", slog.Any("error", err))
	}
}

func runTerminal(ctx context.Context, cancel context.CancelFunc, view *Md.View) error {
	screen, err := Md.GetTTY()
	if err != nil {
		return err
	}
	defer screen.Fini()

	view.AttachScreen(screen)
	view.Cancel = cancel
	return view.RunTerminal(ctx)
}
