package musicio

import (
	"log/slog"
	"math"
	"sync"
	"time"

	Mt "github.com/maroda/musicio/types"
)

const (
	maxDistance  = 50.0   // cm, anything further is silence
	minFrequency = 200.0  // Hz
	maxFrequency = 1200.0 // Hz
	historySize  = 100
)

// StateMachine turns one source's proximity stream into sound commands.
// State only moves through transition(), nothing outside sets it.
type StateMachine struct {
	MU            sync.Mutex
	SourceID      string
	state         Mt.MusicState
	lastDistance  *float64
	lastFrequency *float64
	metadata      map[string]string
	history       *EventHistory
	bus           *EventBus
	pending       []Mt.DomainEvent // collected under MU, emitted after unlock
}

// MachineSnapshot is a read-only copy of the machine context
type MachineSnapshot struct {
	SourceID      string
	State         Mt.MusicState
	LastDistance  *float64
	LastFrequency *float64
	Metadata      map[string]string
	History       []Mt.DomainEvent
}

// NewStateMachine starts in Idle, bus may be nil
func NewStateMachine(source string, bus *EventBus) *StateMachine {
	return &StateMachine{
		SourceID: source,
		state:    Mt.Idle,
		metadata: make(map[string]string),
		history:  NewEventHistory(historySize),
		bus:      bus,
	}
}

// DistanceToSound is the pure mapping from distance to tone.
// Closer is higher, louder and shorter.
// The bool is false when the distance is out of range.
func DistanceToSound(d float64) (Mt.SoundCommand, bool) {
	if d < 0 || d > maxDistance || math.IsNaN(d) {
		return Mt.SoundCommand{}, false
	}

	var frequency, amplitude float64
	switch {
	case d <= 10:
		frequency = 1200 - d*40
		amplitude = 0.8
	case d <= 30:
		frequency = 800 - (d-10)*20
		amplitude = 0.6
	default:
		frequency = 400 - (d-30)*10
		amplitude = 0.4
	}

	seconds := 0.1 + d/100
	duration := time.Duration(seconds * float64(time.Second))

	return NewSoundCommand(ClampFrequency(frequency), duration, amplitude), true
}

// ClampFrequency keeps a tone inside the playable band
func ClampFrequency(f float64) float64 {
	return math.Max(minFrequency, math.Min(maxFrequency, f))
}

// HandleProximity is the main entry point for a reading.
// It returns nil when no sound should be made.
func (sm *StateMachine) HandleProximity(r Mt.ProximityReading) *Mt.SoundCommand {
	if r.Distance < 0 || math.IsNaN(r.Distance) || math.IsInf(r.Distance, 0) {
		slog.Debug("Ignoring invalid distance",
			slog.String("source", sm.SourceID),
			slog.Float64("distance", r.Distance))
		return nil
	}

	sm.MU.Lock()
	cmd := sm.handleLocked(r)
	events := sm.pending
	sm.pending = nil
	sm.MU.Unlock()

	// listeners run outside the lock so they can call back in
	for _, e := range events {
		sm.bus.Emit(e)
	}
	return cmd
}

func (sm *StateMachine) handleLocked(r Mt.ProximityReading) *Mt.SoundCommand {
	d := r.Distance
	sm.lastDistance = &d
	sm.record(NewProximityEvent(r))

	if sm.state == Mt.Error {
		slog.Warn("State machine in error state, reset required",
			slog.String("source", sm.SourceID))
		return nil
	}

	// Playing is momentary, anything left over from before moves on
	if sm.state == Mt.Playing {
		sm.handlePlaying()
	}

	if sm.state == Mt.Idle {
		sm.transition(Mt.Listening, "proximity detected")
	}

	cmd, ok := DistanceToSound(d)
	if !ok {
		sm.transition(Mt.Idle, "distance too far")
		return nil
	}

	sm.transition(Mt.Processing, "converting distance to sound")

	f := cmd.Frequency
	sm.lastFrequency = &f
	sm.record(NewSoundEvent(cmd))

	sm.transition(Mt.Playing, "sound generated")
	sm.handlePlaying()

	return &cmd
}

func (sm *StateMachine) handlePlaying() {
	sm.transition(Mt.Listening, "ready for next input")
}

// transition is the only state mutation, a no-op when already there
func (sm *StateMachine) transition(to Mt.MusicState, reason string) {
	from := sm.state
	if from == to {
		return
	}
	sm.state = to
	slog.Debug("State transition",
		slog.String("source", sm.SourceID),
		slog.String("from", StateToString(from)),
		slog.String("to", StateToString(to)),
		slog.String("reason", reason))
	sm.record(NewTransitionEvent(from, to, reason))
}

func (sm *StateMachine) record(e Mt.DomainEvent) {
	sm.history.Add(e)
	sm.pending = append(sm.pending, e)
}

// Fail is how a host reports a fault, only Reset recovers
func (sm *StateMachine) Fail(reason string) {
	sm.MU.Lock()
	sm.transition(Mt.Error, reason)
	events := sm.pending
	sm.pending = nil
	sm.MU.Unlock()

	slog.Error("State machine fault",
		slog.String("source", sm.SourceID),
		slog.String("reason", reason))
	for _, e := range events {
		sm.bus.Emit(e)
	}
}

// Reset forces Idle and clears the context.
// History is kept for diagnostics.
func (sm *StateMachine) Reset() {
	sm.MU.Lock()
	sm.transition(Mt.Idle, "manual reset")
	sm.lastDistance = nil
	sm.lastFrequency = nil
	clear(sm.metadata)
	events := sm.pending
	sm.pending = nil
	sm.MU.Unlock()

	for _, e := range events {
		sm.bus.Emit(e)
	}
}

func (sm *StateMachine) State() Mt.MusicState {
	sm.MU.Lock()
	defer sm.MU.Unlock()
	return sm.state
}

// SetMetadata stores auxiliary context, cleared by Reset
func (sm *StateMachine) SetMetadata(k, v string) {
	sm.MU.Lock()
	defer sm.MU.Unlock()
	sm.metadata[k] = v
}

func (sm *StateMachine) Snapshot() MachineSnapshot {
	sm.MU.Lock()
	defer sm.MU.Unlock()

	meta := make(map[string]string, len(sm.metadata))
	for k, v := range sm.metadata {
		meta[k] = v
	}
	snap := MachineSnapshot{
		SourceID: sm.SourceID,
		State:    sm.state,
		Metadata: meta,
		History:  sm.history.Ordered(),
	}
	if sm.lastDistance != nil {
		d := *sm.lastDistance
		snap.LastDistance = &d
	}
	if sm.lastFrequency != nil {
		f := *sm.lastFrequency
		snap.LastFrequency = &f
	}
	return snap
}
