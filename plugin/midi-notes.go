package plugin

import "math"

// FrequencyToNote maps Hz onto the nearest MIDI note, A4 = 440Hz = 69
func FrequencyToNote(freq float64) uint8 {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return 0
	}
	n := math.Round(69 + 12*math.Log2(freq/440))
	switch {
	case n < 0:
		return 0
	case n > 127:
		return 127
	}
	return uint8(n)
}

// AmplitudeToVelocity maps 0.0..1.0 onto 1..127, a zero velocity is a NoteOff
func AmplitudeToVelocity(amp float64) uint8 {
	if math.IsNaN(amp) || amp <= 0 {
		return 1
	}
	if amp >= 1 {
		return 127
	}
	v := uint8(math.Round(amp * 127))
	if v < 1 {
		v = 1
	}
	return v
}
