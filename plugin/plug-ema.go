package plugin

/*
	EMA

	Smooths jittery distance readings per source with an
	exponential moving average before they reach the core.

	~~~ Plugin Reference Implementation ~~~
*/

import (
	"sync"
	"time"
)

type EMAPlugin struct {
	MU       sync.Mutex
	Alpha    float64 // weight of the newest sample, 0 < Alpha <= 1
	PrevVal  map[string]float64
	PrevTime map[string]time.Time
	MaxGap   time.Duration // a gap longer than this restarts the series
}

func NewEMAPlugin(alpha float64, gap time.Duration) *EMAPlugin {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &EMAPlugin{
		Alpha:    alpha,
		PrevVal:  make(map[string]float64),
		PrevTime: make(map[string]time.Time),
		MaxGap:   gap,
	}
}

// Smooth returns the averaged distance for source.
// The first reading of a series passes through untouched.
func (p *EMAPlugin) Smooth(source string, current float64, timestamp time.Time) float64 {
	p.MU.Lock()
	defer p.MU.Unlock()

	// If it's not even initialized, fix that too
	if p.PrevVal == nil {
		p.PrevVal = make(map[string]float64)
		p.PrevTime = make(map[string]time.Time)
	}

	prev, exists := p.PrevVal[source]
	if exists && p.MaxGap > 0 && timestamp.Sub(p.PrevTime[source]) > p.MaxGap {
		exists = false
	}

	next := current
	if exists {
		next = CalcEMA(current, prev, p.Alpha)
	}
	p.PrevVal[source] = next
	p.PrevTime[source] = timestamp
	return next
}

// CalcEMA is the generic one-step average
func CalcEMA(curr, prev, alpha float64) float64 {
	return alpha*curr + (1-alpha)*prev
}

func (p *EMAPlugin) Type() string { return "ema" }
