package tracker

import (
	"sort"
	"sync"
	"time"
)

// SpeedSource tags which log signal produced a speed sample.
type SpeedSource int

const (
	SourceRate SpeedSource = iota
	SourceDelta
	SourceStats
)

var speedSourceNames = map[SpeedSource]string{
	SourceRate:  "rate",
	SourceDelta: "delta",
	SourceStats: "stats",
}

func (s SpeedSource) String() string {
	if n, ok := speedSourceNames[s]; ok {
		return n
	}
	return "unknown"
}

// Speed is the single live throughput sample. ReceivedAt is host clock
// time at the moment the owning event was applied, not the log timestamp.
type Speed struct {
	Mbps       float64
	LogTime    string
	Source     SpeedSource
	ReceivedAt time.Time
}

// State is the tracker shared between the tailer (writer) and the reporter
// (reader). Every event commits as one critical section so a reader can
// never observe a half-applied update.
type State struct {
	mu           sync.RWMutex
	statuses     map[string]Status
	lastSeen     map[string]time.Time
	activeApp    string
	activeStatus Status
	speed        *Speed
}

func NewState() *State {
	return &State{
		statuses: make(map[string]Status),
		lastSeen: make(map[string]time.Time),
	}
}

// Apply mutates the tracker according to one classified event. Replaying
// the same lines again (as a windowed reopen does) converges to the same
// statuses, active app, and speed value.
func (s *State) Apply(ev Event, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case UpdateChanged:
		s.statuses[ev.App] = NormalizeStatus(ev.RawStatus)
		s.lastSeen[ev.App] = now
		if hasActiveKeyword(ev.RawStatus) {
			s.activeApp = ev.App
			s.activeStatus = s.statuses[ev.App]
		}

	case UpdateStarted:
		s.activeApp = ev.App
		s.activeStatus = Downloading
		s.statuses[ev.App] = Downloading
		s.lastSeen[ev.App] = now

	case UpdateCanceled:
		s.statuses[ev.App] = Paused
		s.lastSeen[ev.App] = now
		if s.activeApp == ev.App {
			s.activeStatus = Paused
		}

	case Finished:
		s.statuses[ev.App] = Done
		s.lastSeen[ev.App] = now
		if s.activeApp == ev.App {
			// The finished download's speed must not leak into the next report.
			s.activeApp = ""
			s.activeStatus = Idle
			s.speed = nil
		}

	case StateChanged:
		// Only the suspended transition matters here; everything else is
		// superseded by update-changed lines for the same app.
		if NormalizeStatus(ev.RawStatus) != Paused {
			return
		}
		s.statuses[ev.App] = Paused
		s.lastSeen[ev.App] = now
		if s.activeApp == ev.App {
			s.activeStatus = Paused
		}

	case SpeedRate, SpeedDelta, SpeedStats:
		s.speed = &Speed{
			Mbps:       ev.Mbps,
			LogTime:    ev.LogTime,
			Source:     speedSourceFor(ev.Kind),
			ReceivedAt: now,
		}
	}
}

func speedSourceFor(k Kind) SpeedSource {
	switch k {
	case SpeedDelta:
		return SourceDelta
	case SpeedStats:
		return SourceStats
	default:
		return SourceRate
	}
}

// Snapshot is a consistent read-only copy of the tracker, safe to inspect
// without holding the state lock.
type Snapshot struct {
	ActiveApp    string
	ActiveStatus Status
	Statuses     map[string]Status
	LastSeen     map[string]time.Time
	Speed        *Speed
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ActiveApp:    s.activeApp,
		ActiveStatus: s.activeStatus,
		Statuses:     make(map[string]Status, len(s.statuses)),
		LastSeen:     make(map[string]time.Time, len(s.lastSeen)),
	}
	for app, st := range s.statuses {
		snap.Statuses[app] = st
	}
	for app, ts := range s.lastSeen {
		snap.LastSeen[app] = ts
	}
	if s.speed != nil {
		sp := *s.speed
		snap.Speed = &sp
	}
	return snap
}

// Active resolves which app is worth reporting. An explicitly set active
// app is authoritative. Otherwise the most recently seen app that is
// neither Idle nor Done wins; equal timestamps break toward the lowest
// app ID so the pick is stable across runs.
func (snap Snapshot) Active() (string, bool) {
	if snap.ActiveApp != "" {
		return snap.ActiveApp, true
	}

	apps := make([]string, 0, len(snap.LastSeen))
	for app := range snap.LastSeen {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	best := ""
	var bestSeen time.Time
	for _, app := range apps {
		st, ok := snap.Statuses[app]
		if !ok || st == Idle || st == Done {
			continue
		}
		if seen := snap.LastSeen[app]; best == "" || seen.After(bestSeen) {
			best = app
			bestSeen = seen
		}
	}
	return best, best != ""
}

// EffectiveStatus is the status a report should show for the given app:
// the cached active status when that app is the explicit active one,
// otherwise its tracked status.
func (snap Snapshot) EffectiveStatus(app string) (Status, bool) {
	if snap.ActiveApp == app && snap.ActiveApp != "" {
		return snap.ActiveStatus, true
	}
	st, ok := snap.Statuses[app]
	return st, ok
}

// SpeedFresh reports whether the live sample exists and was received
// within staleAfter of now.
func (snap Snapshot) SpeedFresh(now time.Time, staleAfter time.Duration) bool {
	return snap.Speed != nil && now.Sub(snap.Speed.ReceivedAt) <= staleAfter
}
