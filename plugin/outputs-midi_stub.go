//go:build nomidi

package plugin

import (
	"fmt"

	Mt "github.com/maroda/musicio/types"
)

type MIDIOutput struct {
	PortNum int
	Channel uint8
}

func NewMIDIOutput(port int, channel uint8) *MIDIOutput {
	return &MIDIOutput{PortNum: port, Channel: channel}
}

func (m *MIDIOutput) Initialize() error {
	return fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) PlaySound(cmd Mt.SoundCommand) error {
	return fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) Flush() error      { return nil }
func (m *MIDIOutput) Stop() error       { return nil }
func (m *MIDIOutput) IsAvailable() bool { return false }
func (m *MIDIOutput) Type() string      { return "midi-disabled" }
