package musicio

import (
	"log/slog"
	"math"
	"os"
	"strconv"
)

// FillEnvVar returns the value of a runtime Environment Variable
func FillEnvVar(ev string) string {
	// If the EnvVar doesn't exist return a default string
	value := os.Getenv(ev)
	if value == "" {
		value = "ENOENT"
	}
	return value
}

// FillEnvVarInt reads an integer, falling back to def when unset or malformed
func FillEnvVarInt(ev string, def int) int {
	value := FillEnvVar(ev)
	if value == "ENOENT" {
		return def
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Ignoring malformed integer", slog.String("var", ev), slog.String("value", value))
		return def
	}
	return i
}

// FillEnvVarFloat reads a float, falling back to def when unset or malformed
func FillEnvVarFloat(ev string, def float64) float64 {
	value := FillEnvVar(ev)
	if value == "ENOENT" {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		slog.Warn("Ignoring malformed float", slog.String("var", ev), slog.String("value", value))
		return def
	}
	return f
}

// FloatPrecise rounds to p decimal places for display
func FloatPrecise(f float64, p int) float64 {
	pow := math.Pow(10, float64(p))
	return math.Round(f*pow) / pow
}
