package tracker

import (
	"regexp"
	"strconv"
)

// Kind identifies what a classified content_log line means.
type Kind int

const (
	UpdateChanged Kind = iota
	UpdateStarted
	UpdateCanceled
	Finished
	StateChanged
	SpeedRate
	SpeedDelta
	SpeedStats
)

var kindNames = map[Kind]string{
	UpdateChanged:  "update_changed",
	UpdateStarted:  "update_started",
	UpdateCanceled: "update_canceled",
	Finished:       "finished",
	StateChanged:   "state_changed",
	SpeedRate:      "speed_rate",
	SpeedDelta:     "speed_delta",
	SpeedStats:     "speed_stats",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is one classified content_log line. App and RawStatus are only set
// for app lifecycle kinds; Mbps only for the speed kinds. LogTime is the
// timestamp Steam embedded in the line, kept as-is for display.
type Event struct {
	Kind      Kind
	App       string
	RawStatus string
	LogTime   string
	Mbps      float64
}

// The rule set below is ordered: Classify returns the first match.
// UpdateChanged must stay ahead of StateChanged ("update changed" lines
// also contain "changed"), and the three speed patterns are mutually
// exclusive but kept in rate > delta > stats priority.
var (
	updChangedRe   = regexp.MustCompile(`AppID\s+(\d+)\s+.*update changed\s*:\s*(.*)`)
	updStartedRe   = regexp.MustCompile(`AppID\s+(\d+)\s+update started\s*:`)
	updCanceledRe  = regexp.MustCompile(`AppID\s+(\d+)\s+update canceled\s*:`)
	finishedRe     = regexp.MustCompile(`AppID\s+(\d+)\s+finished update`)
	stateChangedRe = regexp.MustCompile(`AppID\s+(\d+)\s+state changed\s*:\s*(.*)`)

	rateRe = regexp.MustCompile(
		`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\].*Current download rate:\s*([0-9.]+)\s*Mbps`)
	deltaRe = regexp.MustCompile(
		`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\].*\(rate was\s*[0-9.]+,\s*now\s*([0-9.]+)\)`)
	statsRe = regexp.MustCompile(
		`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\].*stats:\s*\(Invalid,\s*0\)\s*:\s*([0-9]+)\s*Bytes,\s*([0-9]+)\s*sec\s*\(([0-9.]+)\s*Mbps\)\.`)

	logTimeRe = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]`)
)

// Classify maps one trimmed content_log line to an event. It returns
// ok=false for the overwhelming majority of lines that match no rule.
func Classify(line string) (Event, bool) {
	if m := updChangedRe.FindStringSubmatch(line); m != nil {
		return Event{Kind: UpdateChanged, App: m[1], RawStatus: m[2], LogTime: logTime(line)}, true
	}
	if m := updStartedRe.FindStringSubmatch(line); m != nil {
		return Event{Kind: UpdateStarted, App: m[1], LogTime: logTime(line)}, true
	}
	if m := updCanceledRe.FindStringSubmatch(line); m != nil {
		return Event{Kind: UpdateCanceled, App: m[1], LogTime: logTime(line)}, true
	}
	if m := finishedRe.FindStringSubmatch(line); m != nil {
		return Event{Kind: Finished, App: m[1], LogTime: logTime(line)}, true
	}
	if m := stateChangedRe.FindStringSubmatch(line); m != nil {
		return Event{Kind: StateChanged, App: m[1], RawStatus: m[2], LogTime: logTime(line)}, true
	}
	if m := rateRe.FindStringSubmatch(line); m != nil {
		return speedEvent(SpeedRate, m[1], m[2])
	}
	if m := deltaRe.FindStringSubmatch(line); m != nil {
		return speedEvent(SpeedDelta, m[1], m[2])
	}
	if m := statsRe.FindStringSubmatch(line); m != nil {
		// Bytes and seconds are reported too; only the computed rate is kept.
		return speedEvent(SpeedStats, m[1], m[4])
	}
	return Event{}, false
}

func speedEvent(kind Kind, logTime, value string) (Event, bool) {
	mbps, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Event{}, false
	}
	return Event{Kind: kind, LogTime: logTime, Mbps: mbps}, true
}

func logTime(line string) string {
	if m := logTimeRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}
