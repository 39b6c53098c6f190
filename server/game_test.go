package musicio_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	Mp "github.com/maroda/musicio/plugin"
	Ms "github.com/maroda/musicio/server"
	Mt "github.com/maroda/musicio/types"
)

func TestScoreToOutcome(t *testing.T) {
	cases := []struct {
		score int
		want  Mt.GameOutcome
	}{
		{0, Mt.Lose},
		{9, Mt.Lose},
		{10, Mt.Win},
		{42, Mt.Win},
		{-1, Mt.Lose},
	}
	for _, c := range cases {
		got := Ms.ScoreToOutcome(c.score)
		assertString(t, Ms.OutcomeToString(got), Ms.OutcomeToString(c.want))
	}
}

func TestGameSession(t *testing.T) {
	t.Run("Start opens a game with a fresh id", func(t *testing.T) {
		g := Ms.NewGameSession(nil)
		id := g.Start("button")
		_, err := uuid.Parse(id)
		assertError(t, err, nil)

		snap := g.Snapshot()
		assertBool(t, snap.Active, true)
		assertInt(t, snap.Score, 0)
		assertString(t, snap.Source, "button")

		second := g.Start("dashboard")
		if second == id {
			t.Error("restart reused the game id")
		}
	})

	t.Run("Over fires the actuator with the outcome", func(t *testing.T) {
		act := Mp.NewLogActuator()
		g := Ms.NewGameSession(act)

		g.Start("button")
		outcome, err := g.Over(9)
		assertError(t, err, nil)
		assertString(t, Ms.OutcomeToString(outcome), "lose")

		g.Start("button")
		outcome, err = g.Over(10)
		assertError(t, err, nil)
		assertString(t, Ms.OutcomeToString(outcome), "win")

		assertInt(t, act.Count(), 2)
		assertBool(t, act.Activations[1] == Mt.Win, true)

		snap := g.Snapshot()
		assertBool(t, snap.Active, false)
		assertInt(t, snap.Score, 10)
		assertInt(t, snap.Played, 2)
	})

	t.Run("Actuator errors come back wrapped", func(t *testing.T) {
		g := Ms.NewGameSession(failingActuator{})
		g.Start("button")
		outcome, err := g.Over(12)
		assertError(t, err, errServoJam)
		assertString(t, Ms.OutcomeToString(outcome), "win")
	})

	t.Run("Changes are announced", func(t *testing.T) {
		g := Ms.NewGameSession(nil)
		var seen []Ms.GameSnapshot
		g.OnChange = func(s Ms.GameSnapshot) { seen = append(seen, s) }

		assertBool(t, g.SetInvite(true), true)
		assertBool(t, g.SetInvite(true), false)
		g.Start("dashboard")
		g.Over(3)

		assertInt(t, len(seen), 3)
		assertBool(t, seen[0].Invite, true)
		assertString(t, seen[2].Outcome, "lose")
	})
}

func TestGameSession_Receipt(t *testing.T) {
	t.Run("Printed after the actuator", func(t *testing.T) {
		act := Mp.NewLogActuator()
		printer := Mp.NewLogPrinter()
		g := Ms.NewGameSession(act)
		g.Printer = printer

		g.Start("button")
		_, err := g.Over(12)
		assertError(t, err, nil)
		assertInt(t, act.Count(), 1)
		assertInt(t, printer.Count(), 1)

		receipt := printer.Last()
		assertStringContains(t, receipt, "Thanks for playing")
		assertStringContains(t, receipt, "Score: 12")
		assertStringContains(t, receipt, Ms.ReceiptLine(12))
		assertStringContains(t, receipt, "sing back")
	})

	t.Run("One receipt per game", func(t *testing.T) {
		printer := Mp.NewLogPrinter()
		g := Ms.NewGameSession(nil)
		g.Printer = printer

		g.Start("button")
		g.Over(2)
		g.Start("dashboard")
		g.Over(4)
		assertInt(t, printer.Count(), 2)
		assertStringContains(t, printer.Last(), "Score: 4")
		assertStringContains(t, printer.Last(), "come back")
	})

	t.Run("Printed even when the actuator fails", func(t *testing.T) {
		printer := Mp.NewLogPrinter()
		g := Ms.NewGameSession(failingActuator{})
		g.Printer = printer

		g.Start("button")
		_, err := g.Over(11)
		assertError(t, err, errServoJam)
		assertInt(t, printer.Count(), 1)
	})

	t.Run("Printer errors come back wrapped", func(t *testing.T) {
		g := Ms.NewGameSession(nil)
		g.Printer = failingPrinter{}

		g.Start("button")
		outcome, err := g.Over(10)
		assertError(t, err, errPaperOut)
		assertString(t, Ms.OutcomeToString(outcome), "win")
	})
}

func TestReceiptLine(t *testing.T) {
	assertString(t, Ms.ReceiptLine(0), "------------------------")
	assertString(t, Ms.ReceiptLine(3), "***---------------------")
	assertString(t, Ms.ReceiptLine(99), "************************")
}

var errServoJam = errors.New("servo jammed")
var errPaperOut = errors.New("out of paper")

type failingPrinter struct{}

func (failingPrinter) PrintReceipt(Mt.GameOutcome, int, string) error { return errPaperOut }
func (failingPrinter) Type() string                                   { return "failing" }

type failingActuator struct{}

func (failingActuator) Activate(Mt.GameOutcome, int) error { return errServoJam }
func (failingActuator) Type() string                       { return "failing" }
