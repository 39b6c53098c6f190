package plugin

import (
	"log/slog"
	"sync"

	Mt "github.com/maroda/musicio/types"
)

// LogActuator stands in for the servo and pump stages
type LogActuator struct {
	MU          sync.Mutex
	Activations []Mt.GameOutcome
}

func NewLogActuator() *LogActuator { return &LogActuator{} }

func (la *LogActuator) Activate(outcome Mt.GameOutcome, score int) error {
	la.MU.Lock()
	la.Activations = append(la.Activations, outcome)
	la.MU.Unlock()

	stage := "servo"
	if outcome == Mt.Win {
		stage = "pump"
	}
	slog.Info("Actuator activated",
		slog.String("stage", stage),
		slog.Int("score", score))
	return nil
}

func (la *LogActuator) Count() int {
	la.MU.Lock()
	defer la.MU.Unlock()
	return len(la.Activations)
}

func (la *LogActuator) Type() string { return "log" }
