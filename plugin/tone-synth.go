package plugin

import (
	"io"
	"math"
	"time"
)

const (
	ToneSampleRate = 44100
	toneChannels   = 2
	frameBytes     = 4 * toneChannels // float32 LE per channel
	toneAttack     = 5 * time.Millisecond
	toneRelease    = 20 * time.Millisecond
)

// SineSamples renders a stereo float32 LE sine with a short attack and
// release so notes start and stop without clicks
func SineSamples(freq float64, dur time.Duration, amp float64, rate int) []byte {
	if rate <= 0 {
		rate = ToneSampleRate
	}
	frames := int(dur.Seconds() * float64(rate))
	if frames <= 0 || freq <= 0 {
		return nil
	}
	amp = clampF(amp, 0, 1)

	attack := int(toneAttack.Seconds() * float64(rate))
	release := int(toneRelease.Seconds() * float64(rate))
	buf := make([]byte, frames*frameBytes)

	for i := 0; i < frames; i++ {
		env := 1.0
		if attack > 0 && i < attack {
			env = float64(i) / float64(attack)
		}
		if rem := frames - i; release > 0 && rem < release {
			env = math.Min(env, float64(rem)/float64(release))
		}
		s := amp * env * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
		putStereoF32(buf, i, s)
	}
	return buf
}

// putStereoF32 writes a [-1,1] sample to both channels of frame i
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	o := i * frameBytes
	for c := 0; c < toneChannels; c++ {
		buf[o+c*4] = byte(v)
		buf[o+c*4+1] = byte(v >> 8)
		buf[o+c*4+2] = byte(v >> 16)
		buf[o+c*4+3] = byte(v >> 24)
	}
}

func clampF(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type sampleReader struct {
	data []byte
	pos  int
}

func (r *sampleReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
