package musicio

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	Mt "github.com/maroda/musicio/types"
)

var ErrEmptyConfig = errors.New("file is empty")

// ConfigFile is the installation config.
// Only mix_mode, tempo and master_volume are reapplied on a live reload.
type ConfigFile struct {
	Capacity     int            `json:"capacity"`
	MixMode      string         `json:"mix_mode"`
	Tempo        int            `json:"tempo"`
	MasterVolume *float64       `json:"master_volume,omitempty"`
	Output       string         `json:"output"`
	MIDIPort     int            `json:"midi_port"`
	MIDIChannel  int            `json:"midi_channel"`
	Listen       string         `json:"listen"`
	RecorderPath string         `json:"recorder_path"`
	Sources      []SourceConfig `json:"sources"`
}

// SourceConfig describes one input
type SourceConfig struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"` // device, stdin, sweep
	Path      string  `json:"path"`
	Format    string  `json:"format"` // auto, plain, json_key
	Key       string  `json:"key"`
	Smoothing float64 `json:"smoothing"` // EMA alpha, 0 disables
}

// DefaultConfig runs one simulated source into the log output
func DefaultConfig() ConfigFile {
	vol := 1.0
	return ConfigFile{
		Capacity:     DefaultCapacity,
		MixMode:      string(Mt.Additive),
		MasterVolume: &vol,
		Output:       "log",
		Listen:       ":8090",
		Sources: []SourceConfig{
			{ID: DefaultSource, Kind: "sweep"},
		},
	}
}

// LoadConfigFileName pulls a given filename config off local disk
// Validation is performed on the file before opening
func LoadConfigFileName(filename string) (ConfigFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return ConfigFile{}, err
	}
	defer file.Close()

	// validation
	err = validateLoad(file)
	if err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return ConfigFile{}, err
	}

	return LoadConfig(file)
}

func validateLoad(file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	if info.Size() == 0 {
		slog.Error("file is empty", slog.String("file", file.Name()))
		return ErrEmptyConfig
	}

	return nil
}

// LoadConfig decodes over DefaultConfig so missing keys keep their defaults
func LoadConfig(file *os.File) (ConfigFile, error) {
	config := DefaultConfig()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		slog.Error("could not decode file", slog.Any("error", err))
		return ConfigFile{}, fmt.Errorf("decode %s: %w", file.Name(), err)
	}

	return config, nil
}

// ApplyEnv overrides file values with any MUSICIO_* variables that are set
func (cf *ConfigFile) ApplyEnv() {
	cf.Capacity = FillEnvVarInt("MUSICIO_CAPACITY", cf.Capacity)
	cf.Tempo = FillEnvVarInt("MUSICIO_TEMPO", cf.Tempo)
	cf.MIDIPort = FillEnvVarInt("MUSICIO_MIDI_PORT", cf.MIDIPort)
	cf.MIDIChannel = FillEnvVarInt("MUSICIO_MIDI_CHANNEL", cf.MIDIChannel)

	if v := FillEnvVar("MUSICIO_MIX_MODE"); v != "ENOENT" {
		cf.MixMode = v
	}
	if v := FillEnvVar("MUSICIO_OUTPUT"); v != "ENOENT" {
		cf.Output = v
	}
	if v := FillEnvVar("MUSICIO_ADDR"); v != "ENOENT" {
		cf.Listen = v
	}
	if v := FillEnvVar("MUSICIO_RECORDER"); v != "ENOENT" {
		cf.RecorderPath = v
	}
	if v := FillEnvVar("MUSICIO_DEVICE"); v != "ENOENT" {
		// a device on the command line replaces the configured sources
		cf.Sources = []SourceConfig{{ID: DefaultSource, Kind: "device", Path: v}}
	}

	vol := 1.0
	if cf.MasterVolume != nil {
		vol = *cf.MasterVolume
	}
	vol = FillEnvVarFloat("MUSICIO_VOLUME", vol)
	cf.MasterVolume = &vol
}

// ApplyLive pushes the reloadable settings into the orchestrator
func (cf ConfigFile) ApplyLive(o *Orchestrator) {
	if cf.MixMode != "" {
		o.SetMixMode(Mt.MixMode(cf.MixMode))
	}
	o.SetTempo(cf.Tempo)
	if cf.MasterVolume != nil {
		o.SetMasterVolume(*cf.MasterVolume)
	}
}
