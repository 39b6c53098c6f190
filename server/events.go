package musicio

import (
	"math"
	"time"

	Mt "github.com/maroda/musicio/types"
)

// NewProximityReading builds a timestamped reading.
// No validation here, see ValidDistance.
func NewProximityReading(d float64, s string) Mt.ProximityReading {
	return Mt.ProximityReading{
		Distance:  d,
		SourceID:  s,
		Timestamp: time.Now(),
	}
}

// NewSoundCommand builds a timestamped tone request
func NewSoundCommand(f float64, d time.Duration, a float64) Mt.SoundCommand {
	return Mt.SoundCommand{
		Frequency: f,
		Duration:  d,
		Amplitude: a,
		Timestamp: time.Now(),
	}
}

// ValidDistance is the boundary filter for sensor input.
// Zero, negative, NaN and Inf are all meaningless from a sensor.
func ValidDistance(d float64) bool {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return false
	}
	return d > 0
}

func NewProximityEvent(r Mt.ProximityReading) Mt.DomainEvent {
	return Mt.DomainEvent{
		Kind:      Mt.ProximityDetected,
		Timestamp: time.Now(),
		Proximity: &r,
	}
}

func NewSoundEvent(c Mt.SoundCommand) Mt.DomainEvent {
	return Mt.DomainEvent{
		Kind:      Mt.SoundTriggered,
		Timestamp: time.Now(),
		Sound:     &c,
	}
}

func NewTransitionEvent(from, to Mt.MusicState, reason string) Mt.DomainEvent {
	return Mt.DomainEvent{
		Kind:      Mt.StateChanged,
		Timestamp: time.Now(),
		Transition: &Mt.StateTransition{
			From:   from,
			To:     to,
			Reason: reason,
		},
	}
}

func EventKindToString(k Mt.EventKind) string {
	switch k {
	case Mt.ProximityDetected:
		return "proximity_detected"
	case Mt.SoundTriggered:
		return "sound_triggered"
	case Mt.StateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

func StateToString(s Mt.MusicState) string {
	switch s {
	case Mt.Idle:
		return "idle"
	case Mt.Listening:
		return "listening"
	case Mt.Processing:
		return "processing"
	case Mt.Playing:
		return "playing"
	case Mt.Error:
		return "error"
	default:
		return "unknown"
	}
}

func OutcomeToString(o Mt.GameOutcome) string {
	if o == Mt.Win {
		return "win"
	}
	return "lose"
}
