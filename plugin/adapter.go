package plugin

/*

	The Adapter sits aside /musicio/
	Contains the port contracts between the core and the outside world.
	The core consumes InputPort and emits to OutputPort and VisualizationPort,
	everything physical lives behind one of these.

*/

import (
	"errors"

	Mt "github.com/maroda/musicio/types"
)

var (
	ErrNotInitialized = errors.New("output not initialized")
	ErrUnknownOutput  = errors.New("unknown output")
)

// InputPort is any source of proximity readings:
// a serial board, a file of samples, a web client.
type InputPort interface {
	Start() error
	Stop() error
	IsRunning() bool
	RegisterCallback(func(Mt.ProximityReading))
}

// OutputPort renders sound commands
type OutputPort interface {
	Initialize() error
	PlaySound(Mt.SoundCommand) error
	Stop() error
	IsAvailable() bool
	Type() string
}

// VisualizationPort is fire-and-forget, failures stay inside the adapter
type VisualizationPort interface {
	VisualizeProximity(Mt.ProximityReading)
	VisualizeSound(Mt.SoundCommand)
}

// Actuator drives the physical reward (servo stage, pump stage)
// once a game is decided
type Actuator interface {
	Activate(outcome Mt.GameOutcome, score int) error
	Type() string
}

// Printer hands the visitor a receipt once a game is decided.
// The receipt text is built by the core, the printer only lays it out.
type Printer interface {
	PrintReceipt(outcome Mt.GameOutcome, score int, receipt string) error
	Type() string
}

// EventRecorder persists domain events for later inspection
type EventRecorder interface {
	Record(e Mt.DomainEvent) error
	Flush() error
	Close() error
	Type() string
}
