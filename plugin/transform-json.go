package plugin

/*
	Distance transformers

	A board prints one line per sample, either a bare number "25.5"
	or a JSON object {"distance": 25.5}. Nested keys use dots: "sensor.cm".

	Transform returns the distance in cm, or an error for a malformed line.
	Range checks are not done here, the input adapter filters those.
*/

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// LineTransformer turns one raw line from an input into a distance
type LineTransformer interface {
	Transform(line string, timestamp time.Time) (float64, error)
	Type() string
}

type JSONKeyPlugin struct {
	DistanceKey string
}

// NewJSONTransformer returns a struct for what to search in the JSON
func NewJSONTransformer(key string) *JSONKeyPlugin {
	if key == "" {
		key = "distance"
	}
	return &JSONKeyPlugin{DistanceKey: key}
}

// Transform extracts the JSONKeyPlugin key from the JSON object in line
func (tj *JSONKeyPlugin) Transform(line string, timestamp time.Time) (float64, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		slog.Debug("Error unmarshalling json",
			slog.String("search", tj.DistanceKey),
			slog.String("json", line),
			slog.Any("error", err))
		return 0, fmt.Errorf("error unmarshalling json from line: %w", err)
	}

	value, err := ExtractValue(data, tj.DistanceKey)
	if err != nil {
		return 0, fmt.Errorf("error extracting json value from line: %w", err)
	}

	return value, nil
}

func (tj *JSONKeyPlugin) Type() string { return "json_key" }

// ExtractValue walks a dotted key path and returns the numeric leaf
func ExtractValue(data interface{}, path string) (float64, error) {
	keys := strings.Split(path, ".")
	current := data

	for _, key := range keys {
		switch v := current.(type) {
		case map[string]interface{}:
			var ok bool
			current, ok = v[key]
			if !ok {
				return 0, fmt.Errorf("key %s not found", key)
			}
		default:
			return 0, fmt.Errorf("cannot traverse into type %T at key %s", v, key)
		}
	}

	switch v := current.(type) {
	case float64:
		return v, nil
	case string:
		// some boards quote their numbers
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q not numeric: %w", v, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value not numeric, found %T", v)
	}
}

// PlainPlugin reads a bare number
type PlainPlugin struct{}

func (p *PlainPlugin) Transform(line string, timestamp time.Time) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %w", err)
	}
	return f, nil
}

func (p *PlainPlugin) Type() string { return "plain" }

// AutoPlugin tries JSON first and falls back to a bare number
type AutoPlugin struct {
	JSON  *JSONKeyPlugin
	Plain *PlainPlugin
}

func NewAutoTransformer(key string) *AutoPlugin {
	return &AutoPlugin{
		JSON:  NewJSONTransformer(key),
		Plain: &PlainPlugin{},
	}
}

func (a *AutoPlugin) Transform(line string, timestamp time.Time) (float64, error) {
	if strings.HasPrefix(strings.TrimSpace(line), "{") {
		return a.JSON.Transform(line, timestamp)
	}
	return a.Plain.Transform(line, timestamp)
}

func (a *AutoPlugin) Type() string { return "auto" }
