package musicio

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal keeps its own registry so tests can build as many as they like
type StatsInternal struct {
	Registry     *prometheus.Registry
	WWW          *prometheus.CounterVec
	Readings     *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	Played       *prometheus.CounterVec
	ProcessTimer prometheus.Histogram
	RenderTimer  prometheus.Histogram
	Clients      prometheus.Gauge
}

func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()
	s := &StatsInternal{
		Registry: reg,
		WWW: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "musicio",
			Name:      "http_requests_total",
			Help:      "API requests by status code and method",
		}, []string{"code", "method"}),
		Readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "musicio",
			Name:      "readings_total",
			Help:      "Proximity readings accepted per source",
		}, []string{"source"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "musicio",
			Name:      "readings_dropped_total",
			Help:      "Proximity readings dropped per source",
		}, []string{"source"}),
		Played: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "musicio",
			Name:      "sounds_played_total",
			Help:      "Sound commands sent to an output",
		}, []string{"output", "result"}),
		ProcessTimer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "musicio",
			Name:      "process_seconds",
			Help:      "Time from reading to rendered sounds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		RenderTimer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "musicio",
			Name:      "render_seconds",
			Help:      "Time to draw one terminal frame",
			Buckets:   prometheus.DefBuckets,
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "musicio",
			Name:      "ws_clients",
			Help:      "Connected visualizer clients",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.WWW, s.Readings, s.Dropped, s.Played,
		s.ProcessTimer, s.RenderTimer, s.Clients,
	)
	return s
}

// Handler serves this registry only
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

func (s *StatsInternal) RecWWW(code, method string) {
	s.WWW.WithLabelValues(code, method).Inc()
}

func (s *StatsInternal) RecReading(source string) {
	s.Readings.WithLabelValues(source).Inc()
}

func (s *StatsInternal) RecDropped(source string) {
	s.Dropped.WithLabelValues(source).Inc()
}

func (s *StatsInternal) RecPlayed(output string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.Played.WithLabelValues(output, result).Inc()
}

func (s *StatsInternal) RecProcessTimer(start time.Time) {
	s.ProcessTimer.Observe(time.Since(start).Seconds())
}

func (s *StatsInternal) RecRender(start time.Time) {
	s.RenderTimer.Observe(time.Since(start).Seconds())
}

func (s *StatsInternal) SetClients(n int) {
	s.Clients.Set(float64(n))
}

// WatchCounter exposes a monotonic value owned elsewhere, e.g. an atomic drop counter
func (s *StatsInternal) WatchCounter(name, help string, fn func() float64) error {
	c := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "musicio",
		Name:      name,
		Help:      help,
	}, fn)
	if err := s.Registry.Register(c); err != nil {
		slog.Error("Could not register counter", slog.String("name", name), slog.Any("error", err))
		return err
	}
	return nil
}

// WatchGauge exposes a point-in-time value, e.g. active track count
func (s *StatsInternal) WatchGauge(name, help string, fn func() float64) error {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "musicio",
		Name:      name,
		Help:      help,
	}, fn)
	if err := s.Registry.Register(g); err != nil {
		slog.Error("Could not register gauge", slog.String("name", name), slog.Any("error", err))
		return err
	}
	return nil
}
