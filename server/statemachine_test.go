package musicio_test

import (
	"math"
	"sync"
	"testing"
	"time"

	Ms "github.com/maroda/musicio/server"
	Mt "github.com/maroda/musicio/types"
)

func TestDistanceToSound(t *testing.T) {
	cases := []struct {
		name      string
		distance  float64
		frequency float64
		amplitude float64
		duration  time.Duration
	}{
		{"touching", 0, 1200, 0.8, 100 * time.Millisecond},
		{"close", 5, 1000, 0.8, 150 * time.Millisecond},
		{"edge of close band", 10, 800, 0.8, 200 * time.Millisecond},
		{"middle band", 20, 600, 0.6, 300 * time.Millisecond},
		{"edge of middle band", 30, 400, 0.6, 400 * time.Millisecond},
		{"far band", 40, 300, 0.4, 500 * time.Millisecond},
		{"furthest", 50, 200, 0.4, 600 * time.Millisecond},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Ms.DistanceToSound(c.distance)
			assertBool(t, ok, true)
			assertFloat(t, got.Frequency, c.frequency)
			assertFloat(t, got.Amplitude, c.amplitude)
			assertDuration(t, got.Duration, c.duration)
		})
	}

	t.Run("Out of range makes no sound", func(t *testing.T) {
		for _, d := range []float64{50.01, 100, -1, math.NaN()} {
			_, ok := Ms.DistanceToSound(d)
			assertBool(t, ok, false)
		}
	})

	t.Run("Frequency always inside the band", func(t *testing.T) {
		for d := 0.0; d <= 50; d += 0.25 {
			got, _ := Ms.DistanceToSound(d)
			if got.Frequency < 200 || got.Frequency > 1200 {
				t.Errorf("frequency %f out of band at %f", got.Frequency, d)
			}
		}
	})
}

func TestStateMachine_HandleProximity(t *testing.T) {
	t.Run("Close reading walks through every state", func(t *testing.T) {
		bus := Ms.NewEventBus()
		var transitions []Mt.StateTransition
		bus.Register(func(e Mt.DomainEvent) {
			if e.Kind == Mt.StateChanged {
				transitions = append(transitions, *e.Transition)
			}
		})
		sm := Ms.NewStateMachine("front", bus)

		cmd := sm.HandleProximity(Ms.NewProximityReading(5, "front"))
		if cmd == nil {
			t.Fatal("expected a sound")
		}
		assertFloat(t, cmd.Frequency, 1000)

		want := []Mt.MusicState{Mt.Idle, Mt.Listening, Mt.Processing, Mt.Playing, Mt.Listening}
		assertInt(t, len(transitions), len(want)-1)
		for i, tr := range transitions {
			assertState(t, tr.From, want[i])
			assertState(t, tr.To, want[i+1])
		}
		assertState(t, sm.State(), Mt.Listening)
	})

	t.Run("Far reading goes back to Idle", func(t *testing.T) {
		sm := Ms.NewStateMachine("front", nil)
		cmd := sm.HandleProximity(Ms.NewProximityReading(80, "front"))
		if cmd != nil {
			t.Errorf("expected no sound, got %+v", cmd)
		}
		assertState(t, sm.State(), Mt.Idle)
		snap := sm.Snapshot()
		assertFloat(t, *snap.LastDistance, 80)
		if snap.LastFrequency != nil {
			t.Error("no frequency should be recorded")
		}
	})

	t.Run("Negative and non finite readings leave no trace", func(t *testing.T) {
		bus := Ms.NewEventBus()
		count := 0
		bus.Register(func(Mt.DomainEvent) { count++ })
		sm := Ms.NewStateMachine("front", bus)

		for _, d := range []float64{-1, math.NaN(), math.Inf(1)} {
			if sm.HandleProximity(Ms.NewProximityReading(d, "front")) != nil {
				t.Errorf("distance %f made a sound", d)
			}
		}
		assertInt(t, count, 0)
		assertInt(t, len(sm.Snapshot().History), 0)
		assertState(t, sm.State(), Mt.Idle)
	})

	t.Run("Events carry proximity then sound", func(t *testing.T) {
		bus := Ms.NewEventBus()
		var kinds []Mt.EventKind
		bus.Register(func(e Mt.DomainEvent) { kinds = append(kinds, e.Kind) })
		sm := Ms.NewStateMachine("front", bus)
		sm.HandleProximity(Ms.NewProximityReading(20, "front"))

		assertInt(t, int(kinds[0]), int(Mt.ProximityDetected))
		found := false
		for _, k := range kinds {
			if k == Mt.SoundTriggered {
				found = true
			}
		}
		assertBool(t, found, true)
	})

	t.Run("Listener may call back into the machine", func(t *testing.T) {
		bus := Ms.NewEventBus()
		var sm *Ms.StateMachine
		var seen []Mt.MusicState
		bus.Register(func(e Mt.DomainEvent) {
			seen = append(seen, sm.State())
		})
		sm = Ms.NewStateMachine("front", bus)

		done := make(chan struct{})
		go func() {
			sm.HandleProximity(Ms.NewProximityReading(5, "front"))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("listener deadlocked the machine")
		}
		assertState(t, seen[len(seen)-1], Mt.Listening)
	})
}

func TestStateMachine_ErrorAndReset(t *testing.T) {
	sm := Ms.NewStateMachine("front", nil)
	sm.SetMetadata("visitor", "first")
	sm.HandleProximity(Ms.NewProximityReading(5, "front"))

	t.Run("Error refuses to make sound", func(t *testing.T) {
		sm.Fail("sensor unplugged")
		assertState(t, sm.State(), Mt.Error)
		for _, d := range []float64{5, 25, 70} {
			if sm.HandleProximity(Ms.NewProximityReading(d, "front")) != nil {
				t.Errorf("sound while in error at %f", d)
			}
			assertState(t, sm.State(), Mt.Error)
		}
	})

	t.Run("Reset recovers and clears context", func(t *testing.T) {
		before := len(sm.Snapshot().History)
		sm.Reset()
		snap := sm.Snapshot()
		assertState(t, snap.State, Mt.Idle)
		if snap.LastDistance != nil || snap.LastFrequency != nil {
			t.Error("reset left the last reading behind")
		}
		assertInt(t, len(snap.Metadata), 0)
		if len(snap.History) < before {
			t.Error("reset should keep history")
		}

		if sm.HandleProximity(Ms.NewProximityReading(5, "front")) == nil {
			t.Error("expected sound after reset")
		}
	})
}

func TestStateMachine_HistoryBounded(t *testing.T) {
	sm := Ms.NewStateMachine("front", nil)
	for i := 0; i < 150; i++ {
		sm.HandleProximity(Ms.NewProximityReading(60, "front"))
	}
	assertInt(t, len(sm.Snapshot().History), 100)
}

func TestStateMachine_Concurrent(t *testing.T) {
	sm := Ms.NewStateMachine("front", Ms.NewEventBus())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sm.HandleProximity(Ms.NewProximityReading(float64((i*7+j)%60), "front"))
			}
		}(i)
	}
	wg.Wait()

	st := sm.State()
	if st != Mt.Idle && st != Mt.Listening {
		t.Errorf("machine came to rest in %s", Ms.StateToString(st))
	}
}
