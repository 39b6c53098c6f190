//go:build !nomidi

package musicio_test

import (
	"testing"

	Md "github.com/maroda/musicio/display"
	Mp "github.com/maroda/musicio/plugin"
)

func TestDescribeOutput_MIDI(t *testing.T) {
	info := Md.DescribeOutput(Mp.NewMIDIOutput(3, 2))
	assertStringContains(t, info.Type, "midi")
	assertStringContains(t, info.MIDIPort, "3")
	assertInt(t, info.MIDIChannel, 2)
	if info.Available {
		t.Error("an unopened port is not available")
	}
}
