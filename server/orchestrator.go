package musicio

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	Mt "github.com/maroda/musicio/types"
)

const (
	DefaultCapacity  = 8
	DefaultSource    = "default"
	DefaultPriority  = 5
	HarmonyPriority  = 3
	HarmonySource    = "harmony_generator"
	harmonyDuration  = 500 * time.Millisecond
	trackIDSeparator = "_"
)

// Orchestrator is the conductor.
// It owns one StateMachine per source and the bounded table of live tracks.
// MU covers every read-modify-write on the table and the machine map.
type Orchestrator struct {
	MU           sync.Mutex
	Capacity     int                       // max simultaneous tracks
	Tracks       map[string]*Mt.SoundTrack // live tracks by id
	Machines     map[string]*StateMachine  // one per source, lazily made
	Mode         Mt.MixMode
	Tempo        int     // BPM, 0 means unset
	MasterVolume float64 // reported only, rendering applies it
	Bus          *EventBus
	Now          func() time.Time // injectable clock
	Counters     TrackCounters
	seq          atomic.Uint64
}

// TrackCounters are monotonic totals, read by the metrics layer
type TrackCounters struct {
	Admitted atomic.Uint64
	Rejected atomic.Uint64
	Evicted  atomic.Uint64
	Expired  atomic.Uint64
}

// TrackStatus is one row of the Status snapshot
type TrackStatus struct {
	TrackID   string  `json:"track_id"`
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Priority  int     `json:"priority"`
	Source    string  `json:"source"`
	Age       float64 `json:"age_seconds"`
}

// Status is a read-only picture of the orchestrator
type Status struct {
	Active       int           `json:"active_tracks"`
	Capacity     int           `json:"max_tracks"`
	Mode         Mt.MixMode    `json:"mix_mode"`
	Tempo        int           `json:"tempo_bpm"`
	MasterVolume float64       `json:"master_volume"`
	Sources      []string      `json:"input_sources"`
	Tracks       []TrackStatus `json:"tracks"`
}

// NewOrchestrator builds a conductor with a default source registered.
// A capacity below 1 uses DefaultCapacity.
func NewOrchestrator(capacity int, bus *EventBus) *Orchestrator {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if bus == nil {
		bus = NewEventBus()
	}
	o := &Orchestrator{
		Capacity:     capacity,
		Tracks:       make(map[string]*Mt.SoundTrack),
		Machines:     make(map[string]*StateMachine),
		Mode:         Mt.Additive,
		MasterVolume: 1.0,
		Bus:          bus,
		Now:          time.Now,
	}
	o.Machines[DefaultSource] = NewStateMachine(DefaultSource, bus)
	slog.Info("Orchestrator initialized", slog.Int("capacity", capacity))
	return o
}

// RegisterSource makes sure a machine exists for the source
func (o *Orchestrator) RegisterSource(id string) *StateMachine {
	o.MU.Lock()
	defer o.MU.Unlock()
	return o.machineLocked(id)
}

func (o *Orchestrator) machineLocked(id string) *StateMachine {
	if id == "" {
		id = DefaultSource
	}
	sm, ok := o.Machines[id]
	if !ok {
		sm = NewStateMachine(id, o.Bus)
		o.Machines[id] = sm
		slog.Info("Registered input source", slog.String("source", id))
	}
	return sm
}

// Machine looks up a source without creating it
func (o *Orchestrator) Machine(id string) (*StateMachine, bool) {
	if id == "" {
		id = DefaultSource
	}
	o.MU.Lock()
	defer o.MU.Unlock()
	sm, ok := o.Machines[id]
	return sm, ok
}

// Sources lists registered source ids, sorted
func (o *Orchestrator) Sources() []string {
	o.MU.Lock()
	defer o.MU.Unlock()
	return o.sourcesLocked()
}

func (o *Orchestrator) sourcesLocked() []string {
	ids := make([]string, 0, len(o.Machines))
	for id := range o.Machines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ProcessProximity routes the reading to its source machine,
// admits any resulting sound, purges expired tracks,
// and returns what should be rendered right now.
func (o *Orchestrator) ProcessProximity(r Mt.ProximityReading, sourceID string) []Mt.SoundCommand {
	if sourceID == "" {
		sourceID = DefaultSource
	}
	sm := o.RegisterSource(sourceID)

	// the machine has its own lock, the table lock is not held here
	if cmd := sm.HandleProximity(r); cmd != nil {
		o.AddSound(*cmd, o.NewTrackID(sourceID), DefaultPriority, sourceID)
	}

	return o.ActiveSounds()
}

// NewTrackID derives a unique id from the source and a high-resolution clock.
// The sequence suffix covers two calls in the same nanosecond.
func (o *Orchestrator) NewTrackID(source string) string {
	n := o.seq.Add(1)
	return source + trackIDSeparator +
		strconv.FormatInt(o.Now().UnixNano(), 10) + trackIDSeparator +
		strconv.FormatUint(n, 10)
}

// AddSound admits a track, evicting the lowest priority one if needed.
// It returns false when the table is full of equal or higher priority tracks.
// A duplicate live track id is a programming error and panics.
func (o *Orchestrator) AddSound(c Mt.SoundCommand, trackID string, priority int, source string) bool {
	o.MU.Lock()
	defer o.MU.Unlock()

	if _, exists := o.Tracks[trackID]; exists {
		panic(fmt.Sprintf("duplicate live track id %q", trackID))
	}

	if len(o.Tracks) >= o.Capacity {
		if !o.makeRoomLocked(priority) {
			slog.Warn("Cannot add sound, orchestrator at capacity",
				slog.String("track", trackID),
				slog.Int("priority", priority))
			o.Counters.Rejected.Add(1)
			return false
		}
	}

	o.Tracks[trackID] = &Mt.SoundTrack{
		Command:   c,
		StartTime: o.Now(),
		TrackID:   trackID,
		Priority:  priority,
		Source:    source,
	}
	o.Counters.Admitted.Add(1)
	slog.Debug("Added sound track",
		slog.String("track", trackID),
		slog.Float64("frequency", c.Frequency),
		slog.Int("priority", priority))
	return true
}

// makeRoomLocked evicts one minimum priority track if it is strictly
// lower than p. Ties on the minimum go to the smallest track id.
func (o *Orchestrator) makeRoomLocked(p int) bool {
	var lowest *Mt.SoundTrack
	for _, t := range o.Tracks {
		if lowest == nil ||
			t.Priority < lowest.Priority ||
			(t.Priority == lowest.Priority && t.TrackID < lowest.TrackID) {
			lowest = t
		}
	}
	if lowest == nil || lowest.Priority >= p {
		return false
	}

	slog.Debug("Evicting lower priority track",
		slog.String("track", lowest.TrackID),
		slog.Int("priority", lowest.Priority),
		slog.Int("incoming", p))
	delete(o.Tracks, lowest.TrackID)
	o.Counters.Evicted.Add(1)
	return true
}

// RemoveSound drops a track immediately, unknown ids are ignored
func (o *Orchestrator) RemoveSound(trackID string) bool {
	o.MU.Lock()
	defer o.MU.Unlock()
	if _, ok := o.Tracks[trackID]; !ok {
		return false
	}
	delete(o.Tracks, trackID)
	slog.Debug("Removed sound track", slog.String("track", trackID))
	return true
}

// CleanupExpired is the standalone expiry tick, returns how many went away
func (o *Orchestrator) CleanupExpired() int {
	o.MU.Lock()
	defer o.MU.Unlock()
	return o.cleanupLocked()
}

// a track is expired once elapsed >= duration, equal counts
func (o *Orchestrator) cleanupLocked() int {
	now := o.Now()
	n := 0
	for id, t := range o.Tracks {
		if now.Sub(t.StartTime) >= t.Command.Duration {
			delete(o.Tracks, id)
			o.Counters.Expired.Add(1)
			n++
			slog.Debug("Cleaned up expired track", slog.String("track", id))
		}
	}
	return n
}

// ActiveSounds purges, then applies the mix mode to what is left.
// Returned commands are copies, stored tracks are never touched.
func (o *Orchestrator) ActiveSounds() []Mt.SoundCommand {
	o.MU.Lock()
	defer o.MU.Unlock()

	o.cleanupLocked()
	tracks := o.orderedLocked()

	switch o.Mode {
	case Mt.Priority:
		if len(tracks) == 0 {
			return []Mt.SoundCommand{}
		}
		top := tracks[0]
		for _, t := range tracks[1:] {
			if t.Priority > top.Priority ||
				(t.Priority == top.Priority && t.TrackID < top.TrackID) {
				top = t
			}
		}
		return []Mt.SoundCommand{top.Command}

	case Mt.Layered:
		sounds := make([]Mt.SoundCommand, 0, len(tracks))
		scale := 1.0 / float64(max(1, len(tracks)))
		for _, t := range tracks {
			c := t.Command
			c.Amplitude *= scale
			sounds = append(sounds, c)
		}
		return sounds

	case Mt.Additive:
		return commandsOf(tracks)

	default:
		slog.Warn("Unknown mix mode, using additive", slog.String("mode", string(o.Mode)))
		return commandsOf(tracks)
	}
}

func commandsOf(tracks []*Mt.SoundTrack) []Mt.SoundCommand {
	sounds := make([]Mt.SoundCommand, 0, len(tracks))
	for _, t := range tracks {
		sounds = append(sounds, t.Command)
	}
	return sounds
}

// orderedLocked sorts by start time, then track id
func (o *Orchestrator) orderedLocked() []*Mt.SoundTrack {
	tracks := make([]*Mt.SoundTrack, 0, len(o.Tracks))
	for _, t := range o.Tracks {
		tracks = append(tracks, t)
	}
	sort.Slice(tracks, func(i, j int) bool {
		if !tracks[i].StartTime.Equal(tracks[j].StartTime) {
			return tracks[i].StartTime.Before(tracks[j].StartTime)
		}
		return tracks[i].TrackID < tracks[j].TrackID
	})
	return tracks
}

// Len is the live track count, without purging
func (o *Orchestrator) Len() int {
	o.MU.Lock()
	defer o.MU.Unlock()
	return len(o.Tracks)
}

// ClearAll stops everything and returns how many tracks were dropped
func (o *Orchestrator) ClearAll() int {
	o.MU.Lock()
	defer o.MU.Unlock()
	n := len(o.Tracks)
	clear(o.Tracks)
	slog.Info("Cleared all sounds", slog.Int("tracks", n))
	return n
}

// Reset clears all tracks and puts every source back in Idle
func (o *Orchestrator) Reset() {
	slog.Info("Resetting orchestrator")
	o.ClearAll()

	o.MU.Lock()
	machines := make([]*StateMachine, 0, len(o.Machines))
	for _, sm := range o.Machines {
		machines = append(machines, sm)
	}
	o.MU.Unlock()

	for _, sm := range machines {
		sm.Reset()
	}
}

// SetMixMode stores the mode even if unknown, mixing falls back to additive
func (o *Orchestrator) SetMixMode(m Mt.MixMode) {
	o.MU.Lock()
	defer o.MU.Unlock()
	switch m {
	case Mt.Additive, Mt.Priority, Mt.Layered:
		slog.Info("Mix mode set", slog.String("mode", string(m)))
	default:
		slog.Warn("Unknown mix mode, mixing will be additive", slog.String("mode", string(m)))
	}
	o.Mode = m
}

func (o *Orchestrator) MixMode() Mt.MixMode {
	o.MU.Lock()
	defer o.MU.Unlock()
	return o.Mode
}

// SetTempo sets the BPM used for synchronization, 0 unsets it
func (o *Orchestrator) SetTempo(bpm int) {
	o.MU.Lock()
	defer o.MU.Unlock()
	if bpm < 0 {
		bpm = 0
	}
	o.Tempo = bpm
	slog.Info("Tempo set", slog.Int("bpm", bpm))
}

func (o *Orchestrator) SetMasterVolume(v float64) {
	o.MU.Lock()
	defer o.MU.Unlock()
	o.MasterVolume = min(1.0, max(0.0, v))
}

func (o *Orchestrator) Volume() float64 {
	o.MU.Lock()
	defer o.MU.Unlock()
	return o.MasterVolume
}

// Status is read-only, expired tracks still show until the next purge
func (o *Orchestrator) Status() Status {
	o.MU.Lock()
	defer o.MU.Unlock()

	now := o.Now()
	st := Status{
		Active:       len(o.Tracks),
		Capacity:     o.Capacity,
		Mode:         o.Mode,
		Tempo:        o.Tempo,
		MasterVolume: o.MasterVolume,
		Sources:      o.sourcesLocked(),
		Tracks:       make([]TrackStatus, 0, len(o.Tracks)),
	}
	for _, t := range o.orderedLocked() {
		st.Tracks = append(st.Tracks, TrackStatus{
			TrackID:   t.TrackID,
			Frequency: t.Command.Frequency,
			Amplitude: t.Command.Amplitude,
			Priority:  t.Priority,
			Source:    t.Source,
			Age:       now.Sub(t.StartTime).Seconds(),
		})
	}
	return st
}

// ApplyHarmony layers a major triad over base and admits each note.
// The returned slice has all three notes even if some were rejected.
func (o *Orchestrator) ApplyHarmony(base float64) []Mt.SoundCommand {
	ratios := []float64{1.0, 5.0 / 4.0, 3.0 / 2.0} // root, major third, fifth

	sounds := make([]Mt.SoundCommand, 0, len(ratios))
	for i, r := range ratios {
		c := NewSoundCommand(base*r, harmonyDuration, 0.3/float64(i+1))
		sounds = append(sounds, c)
		id := "harmony" + trackIDSeparator + strconv.Itoa(i) + trackIDSeparator + o.NewTrackID(HarmonySource)
		o.AddSound(c, id, HarmonyPriority, HarmonySource)
	}

	slog.Info("Generated harmony", slog.Float64("base", base))
	return sounds
}
