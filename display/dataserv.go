package musicio

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	Ms "github.com/maroda/musicio/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var Version = "dev"

// webFS holds the dashboard page and its assets
//
//go:embed web
var webFS embed.FS

// OutputInfo describes the sound output in /api/status
type OutputInfo struct {
	Type        string `json:"type"`
	Available   bool   `json:"available"`
	MIDIPort    string `json:"midi_port,omitempty"`
	MIDIChannel int    `json:"midi_channel,omitempty"`
}

// StatusData is what /api/status returns and what clients get every StatusInterval
type StatusData struct {
	Running      bool            `json:"running"`
	HistoryCount int             `json:"history_count"`
	Clients      int             `json:"clients"`
	Orchestrator Ms.Status       `json:"orchestrator"`
	Game         Ms.GameSnapshot `json:"game"`
	Output       OutputInfo      `json:"output"`
}

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket for the dashboard
// - Version for programmatic use
// - Status and recent history for the dashboard
// - The dashboard page at / with its assets under /static/
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)
	api.HandleFunc("/version", v.VersionHandler).Methods(http.MethodGet)
	api.HandleFunc("/status", v.StatusHandler).Methods(http.MethodGet)
	api.HandleFunc("/history", v.HistoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/game/start", v.GameStartHandler).Methods(http.MethodPost)

	// Dashboard page
	pages, _ := fs.Sub(webFS, "web")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServerFS(pages))).Methods(http.MethodGet)
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, pages, "index.html")
	}).Methods(http.MethodGet)

	return r
}

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func (v *View) StatusData() StatusData {
	v.MU.Lock()
	output := v.Output
	running := v.running
	count := len(v.history)
	v.MU.Unlock()

	return StatusData{
		Running:      running,
		HistoryCount: count,
		Clients:      v.Hub.Len(),
		Orchestrator: v.Orch.Status(),
		Game:         v.Game.Snapshot(),
		Output:       output,
	}
}

func (v *View) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, v.StatusData())
}

// HistoryHandler returns the newest events, ?n= asks for fewer
func (v *View) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	n := HistoryServe
	if q := r.URL.Query().Get("n"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a non-negative integer"})
			return
		}
		if parsed < n {
			n = parsed
		}
	}
	writeJSON(w, http.StatusOK, v.History(n))
}

// GameStartHandler lets a button board on the network start a game
func (v *View) GameStartHandler(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "http"
	}
	id := v.TriggerGameStart(source)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Could not write response", slog.Any("error", err))
	}
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)
		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

// Serve starts the dashboard server on addr and returns once it is listening
func (v *View) Serve(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("Could not listen", slog.String("addr", addr), slog.Any("error", err))
		return nil, err
	}

	srv := &http.Server{
		Handler:           otelhttp.NewHandler(v.SetupMux(), "musicio"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	v.MU.Lock()
	v.server = srv
	v.running = true
	v.MU.Unlock()

	go func() {
		slog.Info("Starting dashboard server", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Dashboard server stopped", slog.Any("error", err))
		}
	}()
	return ln.Addr(), nil
}

// Shutdown stops the server and drops every websocket client
func (v *View) Shutdown(ctx context.Context) error {
	v.MU.Lock()
	srv := v.server
	v.server = nil
	v.running = false
	v.MU.Unlock()

	v.Hub.Close()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
