package types

/*

	These are the "immutable" core types of musicio,
	provided for cross-package use (e.g. Plugins) and testing.

	There are no functions defined here.
	Constructors and helpers are housed in the server package.
	A DomainEvent is a tagged union: Kind says which payload is set.

*/

import "time"

// EventKind tags the payload carried by a DomainEvent
type EventKind int

const (
	ProximityDetected EventKind = iota // Proximity payload
	SoundTriggered                     // Sound payload
	StateChanged                       // Transition payload
)

// DomainEvent is something that happened in the core.
// Exactly one payload pointer is set, matching Kind.
// Events are never mutated after creation.
type DomainEvent struct {
	Kind       EventKind
	Timestamp  time.Time
	Proximity  *ProximityReading
	Sound      *SoundCommand
	Transition *StateTransition
}

// ProximityReading is one physical sample from a sensor
type ProximityReading struct {
	Distance  float64 // centimeters
	SourceID  string  // which input produced it
	Timestamp time.Time
}

// SoundCommand is a request to render a single tone
type SoundCommand struct {
	Frequency float64       // Hz
	Duration  time.Duration // always > 0
	Amplitude float64       // 0.0-1.0
	Timestamp time.Time
}

// StateTransition is diagnostic only, nothing in the core reads it back
type StateTransition struct {
	From   MusicState
	To     MusicState
	Reason string
}

// MusicState is the current step of one source's state machine
type MusicState int

const (
	Idle MusicState = iota
	Listening
	Processing
	Playing
	Error // reachable only from a host fault, left only by reset
)

// MixMode decides which active tracks are returned for rendering
type MixMode string

const (
	Additive MixMode = "additive" // everything, untouched
	Priority MixMode = "priority" // only the loudest voice wins
	Layered  MixMode = "layered"  // everything, ducked by count
)

// SoundTrack is an admitted, still-live SoundCommand.
// Only the Orchestrator creates and destroys these.
type SoundTrack struct {
	Command   SoundCommand
	StartTime time.Time
	TrackID   string
	Priority  int
	Source    string
}

// GameOutcome is the result of a finished game session
type GameOutcome int

const (
	Lose GameOutcome = iota
	Win
)
