//go:build !nomidi

package plugin

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	Mt "github.com/maroda/musicio/types"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// MIDIOutput plays each SoundCommand as a NoteOn held for its duration
type MIDIOutput struct {
	PortNum int
	Channel uint8
	Port    drivers.Out
	Send    func(msg midi.Message) error
	WG      sync.WaitGroup
	ready   atomic.Bool
}

// NewMIDIOutput configures the output, the port is opened by Initialize.
// Tests may set Send beforehand to capture messages.
func NewMIDIOutput(port int, channel uint8) *MIDIOutput {
	if channel > 15 {
		channel = 0
	}
	return &MIDIOutput{
		PortNum: port,
		Channel: channel,
	}
}

func (mo *MIDIOutput) Initialize() error {
	if mo.Send != nil {
		mo.ready.Store(true)
		return nil
	}

	out, err := midi.OutPort(mo.PortNum)
	if err != nil {
		slog.Error("Error opening MIDI port", slog.Int("port", mo.PortNum))
		return fmt.Errorf("error opening MIDI port: %w", err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		slog.Error("Error sending to MIDI port", slog.Int("port", mo.PortNum))
		return fmt.Errorf("error sending to MIDI port: %w", err)
	}

	mo.Port = out
	mo.Send = send
	mo.ready.Store(true)
	slog.Info("MIDI output ready", slog.Int("port", mo.PortNum), slog.String("name", out.String()))
	return nil
}

func (mo *MIDIOutput) SendNoteOnMIDI(midic, midin, midiv uint8) error {
	return mo.Send(midi.NoteOn(midic, midin, midiv))
}

func (mo *MIDIOutput) SendNoteOffMIDI(midic, midin uint8) error {
	return mo.Send(midi.NoteOff(midic, midin))
}

// PlaySound returns once the NoteOn is sent, the NoteOff follows later
func (mo *MIDIOutput) PlaySound(cmd Mt.SoundCommand) error {
	if !mo.ready.Load() {
		return ErrNotInitialized
	}

	note := FrequencyToNote(cmd.Frequency)
	velocity := AmplitudeToVelocity(cmd.Amplitude)
	if err := mo.SendNoteOnMIDI(mo.Channel, note, velocity); err != nil {
		slog.Error("NoteOn event failed", slog.Any("error", err))
		return fmt.Errorf("note on: %w", err)
	}

	mo.WG.Add(1)
	go func() {
		defer mo.WG.Done()
		time.Sleep(cmd.Duration)
		if err := mo.SendNoteOffMIDI(mo.Channel, note); err != nil {
			slog.Error("NoteOff event failed, attempting Flush")
			mo.Flush()
		}
	}()

	return nil
}

func (mo *MIDIOutput) Flush() error {
	if mo.Send == nil {
		return nil
	}
	return mo.Send(midi.ControlChange(mo.Channel, midi.AllNotesOff, midi.Off))
}

// Stop waits for pending NoteOffs and releases the driver
func (mo *MIDIOutput) Stop() error {
	mo.WG.Wait()
	mo.ready.Store(false)

	if mo.Port != nil {
		mo.Port.Close()
		midi.CloseDriver()
		mo.Port = nil
	}
	return nil
}

func (mo *MIDIOutput) IsAvailable() bool { return mo.ready.Load() }

func (mo *MIDIOutput) Type() string { return "midi" }
