//go:build nomidi

package musicio

import (
	Mp "github.com/maroda/musicio/plugin"
)

// MIDI support is not compiled in this build, outputs describe themselves
func getMIDISystemInfo(out Mp.OutputPort, info *OutputInfo) {}
