//go:build !nomidi

package musicio

import (
	"strconv"

	Mp "github.com/maroda/musicio/plugin"
)

func getMIDISystemInfo(out Mp.OutputPort, info *OutputInfo) {
	// If the output type is MIDI, fill in the details
	if midiOut, ok := out.(*Mp.MIDIOutput); ok {
		info.MIDIPort = strconv.Itoa(midiOut.PortNum)
		if midiOut.Port != nil {
			info.MIDIPort = midiOut.Port.String()
		}
		info.MIDIChannel = int(midiOut.Channel)
	}
}
