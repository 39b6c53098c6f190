package plugin_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	Mp "github.com/maroda/musicio/plugin"
)

func TestCalcEMA(t *testing.T) {
	t.Run("Returns weighted average", func(t *testing.T) {
		got := Mp.CalcEMA(20, 10, 0.5)
		assertFloat(t, got, 15)
	})

	t.Run("Alpha of one passes the current value", func(t *testing.T) {
		got := Mp.CalcEMA(20, 10, 1)
		assertFloat(t, got, 20)
	})
}

func TestEMAPlugin(t *testing.T) {
	now := time.Now()

	t.Run("Type returns the correct value", func(t *testing.T) {
		plugin := Mp.EMAPlugin{}
		assertStringContains(t, plugin.Type(), "ema")
	})

	t.Run("First reading passes through", func(t *testing.T) {
		plugin := Mp.NewEMAPlugin(0.5, time.Second)
		got := plugin.Smooth("front", 30, now)
		assertFloat(t, got, 30)
	})

	t.Run("Smooths following readings", func(t *testing.T) {
		plugin := Mp.NewEMAPlugin(0.5, time.Second)
		plugin.Smooth("front", 30, now)
		got := plugin.Smooth("front", 10, now.Add(100*time.Millisecond))
		assertFloat(t, got, 20)
	})

	t.Run("Sources are kept apart", func(t *testing.T) {
		plugin := Mp.NewEMAPlugin(0.5, time.Second)
		plugin.Smooth("front", 30, now)
		got := plugin.Smooth("back", 10, now)
		assertFloat(t, got, 10)
	})

	t.Run("Long gap restarts the series", func(t *testing.T) {
		plugin := Mp.NewEMAPlugin(0.5, time.Second)
		plugin.Smooth("front", 30, now)
		got := plugin.Smooth("front", 10, now.Add(5*time.Second))
		assertFloat(t, got, 10)
	})

	t.Run("Zero value plugin initializes itself", func(t *testing.T) {
		plugin := &Mp.EMAPlugin{Alpha: 0.5}
		got := plugin.Smooth("front", 12, now)
		assertFloat(t, got, 12)
	})

	t.Run("Invalid alpha falls back to no smoothing", func(t *testing.T) {
		plugin := Mp.NewEMAPlugin(3, 0)
		plugin.Smooth("front", 30, now)
		got := plugin.Smooth("front", 10, now)
		assertFloat(t, got, 10)
	})
}

/// Helpers

func assertError(t testing.TB, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("got error %q want %q", got, want)
	}
}

func assertGotError(t testing.TB, got error) {
	t.Helper()
	if got == nil {
		t.Errorf("Expected an error but got %q", got)
	}
}

func assertInt(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %d, want %d", got, want)
	}
}

func assertFloat(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("did not get correct value, got %f, want %f", got, want)
	}
}

func assertBool(t *testing.T, got, want bool) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %t, want %t", got, want)
	}
}

func assertStringContains(t *testing.T, full, want string) {
	t.Helper()
	if !strings.Contains(full, want) {
		t.Errorf("Did not find %q, expected string contains %q", want, full)
	}
}
