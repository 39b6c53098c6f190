package musicio

import (
	"sync"
	"time"

	Ms "github.com/maroda/musicio/server"
)

const DefaultTick = 50 * time.Millisecond

// TickSupervisor expires tracks on a fixed beat,
// so sounds end on time even when no reading arrives
type TickSupervisor struct {
	MU       sync.Mutex
	Orch     *Ms.Orchestrator
	Interval time.Duration
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
	OnTick   func(expired int) // optional
}

// NewTickSupervisor attaches a supervisor to the view
func (v *View) NewTickSupervisor(interval time.Duration) *TickSupervisor {
	ts := NewTickSupervisor(v.Orch, interval)
	v.Supervisor = ts
	return ts
}

func NewTickSupervisor(o *Ms.Orchestrator, interval time.Duration) *TickSupervisor {
	if interval <= 0 {
		interval = DefaultTick
	}
	return &TickSupervisor{
		Orch:     o,
		Interval: interval,
	}
}

// Start the TickSupervisor, a second Start is a no-op
func (p *TickSupervisor) Start() {
	p.MU.Lock()
	defer p.MU.Unlock()
	if p.StopChan != nil {
		return
	}

	stop := make(chan struct{})
	p.StopChan = stop
	p.Ticker = time.NewTicker(p.Interval)
	ticker := p.Ticker

	p.WG.Add(1)
	go func() {
		defer p.WG.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n := p.Orch.CleanupExpired()
				if p.OnTick != nil {
					p.OnTick(n)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stop the TickSupervisor
func (p *TickSupervisor) Stop() {
	p.MU.Lock()
	stop := p.StopChan
	p.StopChan = nil
	p.MU.Unlock()

	if stop != nil {
		close(stop)
		p.WG.Wait()
	}
}

// Restart the TickSupervisor
func (p *TickSupervisor) Restart() {
	p.Stop()
	p.Start()
}
