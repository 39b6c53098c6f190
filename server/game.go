package musicio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	Mp "github.com/maroda/musicio/plugin"
	Mt "github.com/maroda/musicio/types"
)

// WinScore is the lowest score that wins
const WinScore = 10

// GameSession tracks the button and dashboard driven game.
// The dashboard owns the gameplay, this side only keeps score.
type GameSession struct {
	MU        sync.Mutex
	ID        string
	Active    bool
	Invite    bool
	Score     int
	Source    string
	StartedAt time.Time
	Played    int
	Actuator  Mp.Actuator        // optional
	Printer   Mp.Printer         // optional, receipt after the actuator
	OnChange  func(GameSnapshot) // optional, called outside MU
	Now       func() time.Time
}

type GameSnapshot struct {
	ID      string `json:"id"`
	Active  bool   `json:"active"`
	Invite  bool   `json:"invite"`
	Score   int    `json:"score"`
	Source  string `json:"source"`
	Played  int    `json:"played"`
	Outcome string `json:"outcome,omitempty"`
}

func NewGameSession(act Mp.Actuator) *GameSession {
	return &GameSession{
		Actuator: act,
		Now:      time.Now,
	}
}

// Start opens a new game and returns its id, a running game is replaced
func (g *GameSession) Start(source string) string {
	g.MU.Lock()
	if g.Active {
		slog.Warn("Game already active, starting over", slog.String("id", g.ID))
	}
	g.ID = uuid.NewString()
	g.Active = true
	g.Score = 0
	g.Source = source
	g.StartedAt = g.Now()
	snap := g.snapshotLocked("")
	g.MU.Unlock()

	slog.Info("Game started", slog.String("id", snap.ID), slog.String("source", source))
	g.notify(snap)
	return snap.ID
}

// ScoreToOutcome decides the reward
func ScoreToOutcome(score int) Mt.GameOutcome {
	if score < WinScore {
		return Mt.Lose
	}
	return Mt.Win
}

// Over closes the game, fires the actuator and prints the receipt.
// Actuator and printer errors are returned with the outcome still decided.
func (g *GameSession) Over(score int) (Mt.GameOutcome, error) {
	outcome := ScoreToOutcome(score)

	g.MU.Lock()
	if !g.Active {
		slog.Warn("Game over without an active game", slog.Int("score", score))
	}
	g.Active = false
	g.Score = score
	g.Played++
	elapsed := g.Now().Sub(g.StartedAt)
	snap := g.snapshotLocked(OutcomeToString(outcome))
	act := g.Actuator
	printer := g.Printer
	g.MU.Unlock()

	slog.Info("Game over",
		slog.String("id", snap.ID),
		slog.Int("score", score),
		slog.String("outcome", snap.Outcome),
		slog.Duration("elapsed", elapsed))
	g.notify(snap)

	var errs []error
	if act != nil {
		if err := act.Activate(outcome, score); err != nil {
			slog.Error("Actuator failed",
				slog.String("actuator", act.Type()),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("activate %s: %w", act.Type(), err))
		}
	}
	if printer != nil {
		if err := printer.PrintReceipt(outcome, score, BuildReceipt(outcome, score)); err != nil {
			slog.Error("Receipt not printed",
				slog.String("printer", printer.Type()),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("print %s: %w", printer.Type(), err))
		}
	}
	return outcome, errors.Join(errs...)
}

// SetInvite toggles the come-closer prompt on the dashboard and reports a change
func (g *GameSession) SetInvite(active bool) bool {
	g.MU.Lock()
	changed := g.Invite != active
	g.Invite = active
	snap := g.snapshotLocked("")
	g.MU.Unlock()

	if changed {
		g.notify(snap)
	}
	return changed
}

func (g *GameSession) Snapshot() GameSnapshot {
	g.MU.Lock()
	defer g.MU.Unlock()
	return g.snapshotLocked("")
}

func (g *GameSession) snapshotLocked(outcome string) GameSnapshot {
	return GameSnapshot{
		ID:      g.ID,
		Active:  g.Active,
		Invite:  g.Invite,
		Score:   g.Score,
		Source:  g.Source,
		Played:  g.Played,
		Outcome: outcome,
	}
}

func (g *GameSession) notify(s GameSnapshot) {
	if g.OnChange != nil {
		g.OnChange(s)
	}
}
