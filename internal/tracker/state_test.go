package tracker

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func apply(s *State, now time.Time, lines ...string) {
	for _, line := range lines {
		if ev, ok := Classify(line); ok {
			s.Apply(ev, now)
		}
	}
}

func TestUpdateStartedSetsActive(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)

	snap := s.Snapshot()
	if snap.ActiveApp != "10" || snap.ActiveStatus != Downloading {
		t.Errorf("active = (%q, %v), want (10, Downloading)", snap.ActiveApp, snap.ActiveStatus)
	}
	if snap.Statuses["10"] != Downloading {
		t.Errorf("status = %v, want Downloading", snap.Statuses["10"])
	}
	if _, ok := snap.LastSeen["10"]; !ok {
		t.Error("lastSeen not recorded")
	}
}

func TestUpdateChangedActiveKeyword(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateChanged, App: "20", RawStatus: "verifying install"}, t0)

	snap := s.Snapshot()
	if snap.ActiveApp != "20" || snap.ActiveStatus != Verifying {
		t.Errorf("active = (%q, %v), want (20, Verifying)", snap.ActiveApp, snap.ActiveStatus)
	}
}

func TestUpdateChangedNonActiveKeywordKeepsActive(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)
	s.Apply(Event{Kind: UpdateChanged, App: "20", RawStatus: "none"}, t0.Add(time.Second))

	snap := s.Snapshot()
	if snap.ActiveApp != "10" {
		t.Errorf("active app switched to %q on a none status", snap.ActiveApp)
	}
	if snap.Statuses["20"] != Idle {
		t.Errorf("status for 20 = %v, want Idle", snap.Statuses["20"])
	}
}

func TestUpdateCanceledPausesActive(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)
	s.Apply(Event{Kind: UpdateCanceled, App: "10"}, t0.Add(time.Second))

	snap := s.Snapshot()
	if snap.ActiveApp != "10" {
		t.Error("canceled app should remain the active app")
	}
	if snap.ActiveStatus != Paused || snap.Statuses["10"] != Paused {
		t.Errorf("status = (%v, %v), want Paused", snap.ActiveStatus, snap.Statuses["10"])
	}
}

func TestUpdateCanceledOtherAppLeavesActiveStatus(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)
	s.Apply(Event{Kind: UpdateCanceled, App: "20"}, t0.Add(time.Second))

	snap := s.Snapshot()
	if snap.ActiveStatus != Downloading {
		t.Errorf("active status = %v, want Downloading", snap.ActiveStatus)
	}
	if snap.Statuses["20"] != Paused {
		t.Errorf("status for 20 = %v, want Paused", snap.Statuses["20"])
	}
}

func TestFinishedClearsActiveAndSpeed(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)
	s.Apply(Event{Kind: SpeedRate, Mbps: 12.5, LogTime: "2024-01-01 10:00:01"}, t0.Add(time.Second))
	s.Apply(Event{Kind: Finished, App: "10"}, t0.Add(2*time.Second))

	snap := s.Snapshot()
	if snap.ActiveApp != "" {
		t.Errorf("active app = %q, want none", snap.ActiveApp)
	}
	if snap.Speed != nil {
		t.Error("finished active app must discard the speed sample")
	}
	if snap.Statuses["10"] != Done {
		t.Errorf("status = %v, want Done", snap.Statuses["10"])
	}
}

func TestFinishedOtherAppKeepsSpeed(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)
	s.Apply(Event{Kind: SpeedRate, Mbps: 12.5}, t0)
	s.Apply(Event{Kind: Finished, App: "20"}, t0.Add(time.Second))

	snap := s.Snapshot()
	if snap.ActiveApp != "10" {
		t.Errorf("active app = %q, want 10", snap.ActiveApp)
	}
	if snap.Speed == nil {
		t.Fatal("speed discarded for a non-active finish")
	}
}

func TestStateChangedSuspendedOnly(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)

	// Non-suspended state changes are ignored entirely.
	s.Apply(Event{Kind: StateChanged, App: "10", RawStatus: "Fully Installed"}, t0.Add(time.Second))
	snap := s.Snapshot()
	if snap.Statuses["10"] != Downloading || snap.ActiveStatus != Downloading {
		t.Errorf("non-suspended state change mutated state: %v / %v", snap.Statuses["10"], snap.ActiveStatus)
	}

	s.Apply(Event{Kind: StateChanged, App: "10", RawStatus: "Update Required,Update Suspended"}, t0.Add(2*time.Second))
	snap = s.Snapshot()
	if snap.Statuses["10"] != Paused || snap.ActiveStatus != Paused {
		t.Errorf("suspended state change: %v / %v, want Paused", snap.Statuses["10"], snap.ActiveStatus)
	}
}

func TestSpeedLastWriterWins(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: SpeedRate, Mbps: 10, LogTime: "a"}, t0)
	s.Apply(Event{Kind: SpeedStats, Mbps: 20, LogTime: "b"}, t0.Add(time.Second))
	s.Apply(Event{Kind: SpeedDelta, Mbps: 30, LogTime: "c"}, t0.Add(2*time.Second))

	snap := s.Snapshot()
	if snap.Speed == nil {
		t.Fatal("no speed sample")
	}
	if snap.Speed.Mbps != 30 || snap.Speed.Source != SourceDelta || snap.Speed.LogTime != "c" {
		t.Errorf("speed = %+v, want last-writer delta 30", snap.Speed)
	}
	if !snap.Speed.ReceivedAt.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("receivedAt = %v, want apply time", snap.Speed.ReceivedAt)
	}
}

// Replaying the same lines twice, as a windowed reopen does, must converge
// to the same state as a single pass.
func TestReplayIdempotence(t *testing.T) {
	lines := []string{
		`[2024-01-01 10:00:00] AppID 10 update started : download`,
		`[2024-01-01 10:00:01] Current download rate: 12.5 Mbps`,
		`[2024-01-01 10:00:02] AppID 20 scheduler update changed : staging`,
		`[2024-01-01 10:00:03] AppID 20 scheduler update changed : none`,
		`[2024-01-01 10:00:04] AppID 10 update canceled : paused`,
	}

	once := NewState()
	apply(once, t0, lines...)

	twice := NewState()
	apply(twice, t0, lines...)
	apply(twice, t0, lines...)

	a, b := once.Snapshot(), twice.Snapshot()
	if a.ActiveApp != b.ActiveApp || a.ActiveStatus != b.ActiveStatus {
		t.Errorf("active diverged: (%q,%v) vs (%q,%v)", a.ActiveApp, a.ActiveStatus, b.ActiveApp, b.ActiveStatus)
	}
	for app, st := range a.Statuses {
		if b.Statuses[app] != st {
			t.Errorf("status for %s diverged: %v vs %v", app, st, b.Statuses[app])
		}
	}
	if (a.Speed == nil) != (b.Speed == nil) {
		t.Fatal("speed presence diverged")
	}
	if a.Speed != nil && a.Speed.Mbps != b.Speed.Mbps {
		t.Errorf("speed diverged: %v vs %v", a.Speed.Mbps, b.Speed.Mbps)
	}
}

func TestActiveExplicitWins(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateChanged, App: "20", RawStatus: "staging"}, t0.Add(time.Hour))
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)

	app, ok := s.Snapshot().Active()
	if !ok || app != "10" {
		t.Errorf("Active() = (%q, %v), want explicit app 10", app, ok)
	}
}

func TestActiveInference(t *testing.T) {
	s := NewState()
	// No explicit active app: only canceled/suspended style transitions.
	s.Apply(Event{Kind: UpdateCanceled, App: "10"}, t0)
	s.Apply(Event{Kind: UpdateCanceled, App: "20"}, t0.Add(time.Second))
	s.Apply(Event{Kind: Finished, App: "30"}, t0.Add(2*time.Second))

	app, ok := s.Snapshot().Active()
	if !ok || app != "20" {
		t.Errorf("Active() = (%q, %v), want most recent non-idle non-done app 20", app, ok)
	}
}

func TestActiveInferenceSkipsIdleAndDone(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateChanged, App: "10", RawStatus: "none"}, t0)
	s.Apply(Event{Kind: Finished, App: "20"}, t0.Add(time.Second))

	if app, ok := s.Snapshot().Active(); ok {
		t.Errorf("Active() = %q, want none", app)
	}
}

func TestActiveInferenceTieBreak(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateCanceled, App: "200"}, t0)
	s.Apply(Event{Kind: UpdateCanceled, App: "100"}, t0)

	app, ok := s.Snapshot().Active()
	if !ok || app != "100" {
		t.Errorf("Active() = (%q, %v), want lowest app ID 100 on equal timestamps", app, ok)
	}
}

func TestSpeedFreshness(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: SpeedRate, Mbps: 12.5}, t0)
	snap := s.Snapshot()

	stale := 300 * time.Second
	if !snap.SpeedFresh(t0.Add(stale), stale) {
		t.Error("sample exactly at the threshold must be fresh")
	}
	if snap.SpeedFresh(t0.Add(stale+time.Second), stale) {
		t.Error("sample past the threshold must be stale")
	}
	if (Snapshot{}).SpeedFresh(t0, stale) {
		t.Error("absent sample must never be fresh")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: UpdateStarted, App: "10"}, t0)

	snap := s.Snapshot()
	snap.Statuses["10"] = Done
	snap.Speed = &Speed{Mbps: 1}

	if s.Snapshot().Statuses["10"] != Downloading {
		t.Error("snapshot mutation leaked into state")
	}
}
