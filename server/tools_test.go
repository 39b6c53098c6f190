package musicio_test

import (
	"testing"

	Ms "github.com/maroda/musicio/server"
)

func TestFillEnvVar(t *testing.T) {
	t.Run("returns a default value", func(t *testing.T) {
		got := Ms.FillEnvVar("MUSICIO_ANYTHING_UNSET")
		assertString(t, got, "ENOENT")
	})

	t.Run("returns a set value", func(t *testing.T) {
		t.Setenv("MUSICIO_TOKEN", "theremin")
		got := Ms.FillEnvVar("MUSICIO_TOKEN")
		assertString(t, got, "theremin")
	})
}

func TestFillEnvVarInt(t *testing.T) {
	t.Run("returns the default when unset", func(t *testing.T) {
		assertInt(t, Ms.FillEnvVarInt("MUSICIO_INT_UNSET", 8), 8)
	})

	t.Run("parses a set value", func(t *testing.T) {
		t.Setenv("MUSICIO_INT", "12")
		assertInt(t, Ms.FillEnvVarInt("MUSICIO_INT", 8), 12)
	})

	t.Run("ignores a malformed value", func(t *testing.T) {
		t.Setenv("MUSICIO_INT", "twelve")
		assertInt(t, Ms.FillEnvVarInt("MUSICIO_INT", 8), 8)
	})
}

func TestFillEnvVarFloat(t *testing.T) {
	t.Run("parses a set value", func(t *testing.T) {
		t.Setenv("MUSICIO_FLOAT", "0.25")
		assertFloat(t, Ms.FillEnvVarFloat("MUSICIO_FLOAT", 1), 0.25)
	})

	t.Run("rejects NaN", func(t *testing.T) {
		t.Setenv("MUSICIO_FLOAT", "NaN")
		assertFloat(t, Ms.FillEnvVarFloat("MUSICIO_FLOAT", 1), 1)
	})
}

func TestFloatPrecise(t *testing.T) {
	assertFloat(t, Ms.FloatPrecise(1.23456, 2), 1.23)
	assertFloat(t, Ms.FloatPrecise(0.155, 1), 0.2)
}
