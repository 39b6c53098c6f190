package musicio

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	Mo "github.com/maroda/musicio/obvy"
	Ms "github.com/maroda/musicio/server"
	Mt "github.com/maroda/musicio/types"
)

const (
	HistorySize  = 100  // visual events kept in memory
	HistoryServe = 50   // events returned by /api/history
	PulseRange   = 50.0 // cm, past this the pulse is flat
)

// Dashboard event names, both directions
const (
	EventConnected        = "connected"
	EventProximityPulse   = "proximity_pulse"
	EventSound            = "sound_event"
	EventStatus           = "status"
	EventGameStartTrigger = "game_start_trigger"
	EventGameState        = "game_state"
	EventProximityInvite  = "proximity_invite"
	EventJoystickInput    = "joystick_input"
	EventJoystick         = "joystick_event"
	EventHandRaised       = "hand_raised"
	EventHandRaisedLeft   = "hand_raised_left"
	EventSpawnCollectible = "spawn_collectible"
	EventSpawnEnemy       = "spawn_enemy"
	EventGameStarted      = "game_started"
	EventGameOver         = "game_over"
	EventReset            = "reset"
)

// VisualEvent is one entry of the dashboard history
type VisualEvent struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// View is the dashboard side of the installation.
// It renders what the engine hands it and relays game events from clients.
type View struct {
	MU         sync.Mutex
	Orch       *Ms.Orchestrator
	Game       *Ms.GameSession
	Stats      *Mo.StatsInternal
	Hub        *Hub
	Screen     tcell.Screen // nil when headless
	Supervisor *TickSupervisor
	Output     OutputInfo
	Cancel     context.CancelFunc // ESC in the terminal
	Now        func() time.Time
	history    []VisualEvent
	server     *http.Server
	running    bool
}

// NewView builds a headless view, AttachScreen adds the terminal
func NewView(o *Ms.Orchestrator, g *Ms.GameSession, stats *Mo.StatsInternal) (*View, error) {
	if o == nil {
		slog.Error("Could not get an orchestrator for display")
		return nil, errors.New("orchestrator not found")
	}
	if stats == nil {
		stats = Mo.NewStatsInternal()
	}
	if g == nil {
		g = Ms.NewGameSession(nil)
	}

	v := &View{
		Orch:    o,
		Game:    g,
		Stats:   stats,
		Hub:     NewHub(),
		Now:     time.Now,
		history: make([]VisualEvent, 0, HistorySize),
	}
	v.Hub.OnCount = stats.SetClients
	g.OnChange = v.GameChanged
	return v, nil
}

// PulseIntensity is 1 at the sensor and 0 from PulseRange out
func PulseIntensity(distance float64) float64 {
	if !(distance > 0) {
		return 0
	}
	d := distance
	if d > PulseRange {
		d = PulseRange
	}
	return Ms.FloatPrecise(1.0-d/PulseRange, 4)
}

func (v *View) VisualizeProximity(r Mt.ProximityReading) {
	data := map[string]any{
		"distance":        r.Distance,
		"source_id":       r.SourceID,
		"pulse_intensity": PulseIntensity(r.Distance),
	}
	v.record(EventProximityPulse, data)
	v.Hub.Broadcast(EventProximityPulse, data)
}

func (v *View) VisualizeSound(c Mt.SoundCommand) {
	data := map[string]any{
		"frequency": c.Frequency,
		"duration":  c.Duration.Seconds(),
		"amplitude": c.Amplitude,
	}
	v.record(EventSound, data)
	v.Hub.Broadcast(EventSound, data)
}

func (v *View) record(kind string, data map[string]any) {
	v.MU.Lock()
	defer v.MU.Unlock()

	if len(v.history) >= HistorySize {
		copy(v.history, v.history[1:])
		v.history = v.history[:len(v.history)-1]
	}
	v.history = append(v.history, VisualEvent{Type: kind, Timestamp: v.Now(), Data: data})
}

// History returns up to n of the newest events, oldest first
func (v *View) History(n int) []VisualEvent {
	v.MU.Lock()
	defer v.MU.Unlock()

	start := 0
	if n >= 0 && len(v.history) > n {
		start = len(v.history) - n
	}
	out := make([]VisualEvent, len(v.history)-start)
	copy(out, v.history[start:])
	return out
}

func (v *View) HistoryCount() int {
	v.MU.Lock()
	defer v.MU.Unlock()
	return len(v.history)
}

// GameChanged is the GameSession hook, every change reaches the dashboard
func (v *View) GameChanged(s Ms.GameSnapshot) {
	v.Hub.Broadcast(EventGameState, s)
}

// TriggerGameStart is the physical button path: the game starts here
// and the dashboard is told to begin play
func (v *View) TriggerGameStart(source string) string {
	id := v.Game.Start(source)
	v.Hub.Broadcast(EventGameStartTrigger, map[string]any{
		"id":        id,
		"source":    source,
		"timestamp": v.Now(),
	})
	return id
}

// SetInvite shows or hides the come-closer text on the dashboard,
// only a change is broadcast
func (v *View) SetInvite(active bool) {
	if !v.Game.SetInvite(active) {
		return
	}
	v.Hub.Broadcast(EventProximityInvite, map[string]any{"invite": active})
}

// InviteListener turns the invite on while someone stands within PulseRange
func (v *View) InviteListener() Ms.Listener {
	return func(e Mt.DomainEvent) {
		if e.Kind != Mt.ProximityDetected || e.Proximity == nil {
			return
		}
		v.SetInvite(e.Proximity.Distance <= PulseRange)
	}
}

func (v *View) IsRunning() bool {
	v.MU.Lock()
	defer v.MU.Unlock()
	return v.running
}
