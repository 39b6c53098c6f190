package musicio

import (
	"errors"
	"log/slog"

	Mp "github.com/maroda/musicio/plugin"
)

// InitOutput builds and initializes the named output.
// Anything that fails falls back to the log output, so the engine always has one.
// The returned error says why the fallback happened.
func InitOutput(name string, cfg Mp.OutputConfig) (Mp.OutputPort, error) {
	out, err := Mp.OutputLookup(name, cfg)
	if err == nil {
		if err = out.Initialize(); err == nil {
			slog.Info("Output Adapter Enabled", slog.String("output", out.Type()))
			return out, nil
		}
	}

	slog.Error("Failed to create adapter, using log output",
		slog.String("output", name),
		slog.Any("error", err))
	fallback := Mp.NewLogOutput()
	if ferr := fallback.Initialize(); ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return fallback, err
}

// DescribeOutput fills the output part of /api/status
func DescribeOutput(out Mp.OutputPort) OutputInfo {
	if out == nil {
		return OutputInfo{Type: "none"}
	}
	info := OutputInfo{
		Type:      out.Type(),
		Available: out.IsAvailable(),
	}
	getMIDISystemInfo(out, &info)
	return info
}

// SetOutput records which output the engine renders to
func (v *View) SetOutput(out Mp.OutputPort) {
	info := DescribeOutput(out)
	v.MU.Lock()
	v.Output = info
	v.MU.Unlock()
}
