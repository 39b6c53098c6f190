package plugin_test

import (
	"testing"
	"time"

	Mp "github.com/maroda/musicio/plugin"
	Mt "github.com/maroda/musicio/types"
)

func TestLogOutput(t *testing.T) {
	out := Mp.NewLogOutput()
	cmd := Mt.SoundCommand{Frequency: 600, Duration: 200 * time.Millisecond, Amplitude: 0.6}

	t.Run("Errors before Initialize", func(t *testing.T) {
		assertError(t, out.PlaySound(cmd), Mp.ErrNotInitialized)
	})

	t.Run("Counts played sounds", func(t *testing.T) {
		assertError(t, out.Initialize(), nil)
		assertBool(t, out.IsAvailable(), true)
		assertError(t, out.PlaySound(cmd), nil)
		assertError(t, out.PlaySound(cmd), nil)
		assertInt(t, int(out.Played.Load()), 2)
	})

	t.Run("Stop makes it unavailable", func(t *testing.T) {
		assertError(t, out.Stop(), nil)
		assertBool(t, out.IsAvailable(), false)
	})
}

func TestLogActuator(t *testing.T) {
	act := Mp.NewLogActuator()
	assertError(t, act.Activate(Mt.Lose, 3), nil)
	assertError(t, act.Activate(Mt.Win, 12), nil)
	assertInt(t, act.Count(), 2)
	assertStringContains(t, act.Type(), "log")
}

func TestSineSamples(t *testing.T) {
	t.Run("Length follows duration", func(t *testing.T) {
		buf := Mp.SineSamples(440, 100*time.Millisecond, 0.5, 1000)
		// 100 frames of two float32 channels
		assertInt(t, len(buf), 100*8)
	})

	t.Run("Starts silent for the attack", func(t *testing.T) {
		buf := Mp.SineSamples(440, 100*time.Millisecond, 1, 1000)
		for i := 0; i < 8; i++ {
			if buf[i] != 0 {
				t.Fatalf("first frame not silent at byte %d", i)
			}
		}
	})

	t.Run("Nothing for zero duration or frequency", func(t *testing.T) {
		assertInt(t, len(Mp.SineSamples(440, 0, 1, 1000)), 0)
		assertInt(t, len(Mp.SineSamples(0, time.Second, 1, 1000)), 0)
	})
}

func TestLogPrinter(t *testing.T) {
	lp := Mp.NewLogPrinter()
	assertStringContains(t, lp.Type(), "log")
	if lp.Last() != "" {
		t.Error("no receipt printed yet")
	}

	assertError(t, lp.PrintReceipt(Mt.Win, 12, "Score: 12\n"), nil)
	assertError(t, lp.PrintReceipt(Mt.Lose, 2, "Score: 2\n"), nil)
	assertInt(t, lp.Count(), 2)
	assertStringContains(t, lp.Last(), "Score: 2")
}
