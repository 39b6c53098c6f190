package musicio

import (
	"log/slog"
	"runtime/debug"
	"sync"

	Mt "github.com/maroda/musicio/types"
)

// Listener observes domain events, it must not assume any ordering
// across sources, only within one source.
type Listener func(Mt.DomainEvent)

// EventBus is a synchronous fan-out of domain events.
// A listener that panics is logged and skipped,
// the rest of the listeners still see the event.
type EventBus struct {
	MU        sync.RWMutex
	listeners []Listener
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Register adds a listener, nil is ignored
func (b *EventBus) Register(l Listener) {
	if l == nil {
		return
	}
	b.MU.Lock()
	defer b.MU.Unlock()
	b.listeners = append(b.listeners, l)
}

// Len is the number of registered listeners
func (b *EventBus) Len() int {
	b.MU.RLock()
	defer b.MU.RUnlock()
	return len(b.listeners)
}

// Emit delivers e to every listener in registration order.
// The listener slice is copied so a listener may Register without deadlock.
func (b *EventBus) Emit(e Mt.DomainEvent) {
	if b == nil {
		return
	}
	b.MU.RLock()
	ls := append([]Listener(nil), b.listeners...)
	b.MU.RUnlock()

	for i, l := range ls {
		deliver(i, l, e)
	}
}

func deliver(i int, l Listener, e Mt.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Listener failed, continuing",
				slog.Int("listener", i),
				slog.String("kind", EventKindToString(e.Kind)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	l(e)
}

// EventHistory is a fixed rolling window of events,
// the oldest is overwritten first.
type EventHistory struct {
	Events  []Mt.DomainEvent
	MaxSize int
	Current int // index of the next write
	Count   int // how many slots are filled
}

func NewEventHistory(size int) *EventHistory {
	if size < 1 {
		size = 1
	}
	return &EventHistory{
		Events:  make([]Mt.DomainEvent, size),
		MaxSize: size,
	}
}

// Add writes at the current position and moves forward
func (h *EventHistory) Add(e Mt.DomainEvent) {
	h.Events[h.Current] = e
	h.Current = (h.Current + 1) % h.MaxSize
	if h.Count < h.MaxSize {
		h.Count++
	}
}

// Ordered returns the filled window, oldest to newest
func (h *EventHistory) Ordered() []Mt.DomainEvent {
	out := make([]Mt.DomainEvent, 0, h.Count)
	start := (h.Current - h.Count + h.MaxSize) % h.MaxSize
	for i := 0; i < h.Count; i++ {
		out = append(out, h.Events[(start+i)%h.MaxSize])
	}
	return out
}
