//go:build notone

package plugin

import (
	"fmt"

	Mt "github.com/maroda/musicio/types"
)

type ToneOutput struct {
	SampleRate int
	Volume     float64
}

func NewToneOutput(rate int) *ToneOutput {
	return &ToneOutput{SampleRate: rate, Volume: 1}
}

func (to *ToneOutput) Initialize() error {
	return fmt.Errorf("tone support not compiled in this build")
}

func (to *ToneOutput) PlaySound(cmd Mt.SoundCommand) error {
	return fmt.Errorf("tone support not compiled in this build")
}

func (to *ToneOutput) Stop() error       { return nil }
func (to *ToneOutput) IsAvailable() bool { return false }
func (to *ToneOutput) Type() string      { return "tone-disabled" }
