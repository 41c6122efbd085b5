package tracker

import (
	"encoding/json"
	"strings"
)

// Status is the normalized state of one app's download.
type Status int

const (
	Idle Status = iota
	Downloading
	Staging
	Committing
	Verifying
	Preparing
	Allocating
	Paused
	Done
)

var statusNames = map[Status]string{
	Idle:        "Idle",
	Downloading: "Downloading",
	Staging:     "Staging",
	Committing:  "Committing",
	Verifying:   "Verifying",
	Preparing:   "Preparing",
	Allocating:  "Allocating",
	Paused:      "Paused",
	Done:        "Done",
}

var statusFromName = map[string]Status{
	"Idle":        Idle,
	"Downloading": Downloading,
	"Staging":     Staging,
	"Committing":  Committing,
	"Verifying":   Verifying,
	"Preparing":   Preparing,
	"Allocating":  Allocating,
	"Paused":      Paused,
	"Done":        Done,
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := statusFromName[name]; ok {
		*s = v
	}
	return nil
}

// statusKeywords is checked in order; the first substring hit wins.
// "suspended" must stay first so a paused transfer never reads as active.
var statusKeywords = []struct {
	substr string
	status Status
}{
	{"suspended", Paused},
	{"downloading", Downloading},
	{"staging", Staging},
	{"committing", Committing},
	{"verifying", Verifying},
	{"reconfiguring", Preparing},
	{"preallocating", Allocating},
}

// activeKeywords are the raw-status substrings that mark an app as the one
// currently being worked on. "suspended" is deliberately absent.
var activeKeywords = []string{
	"downloading", "staging", "committing", "verifying", "preallocating", "reconfiguring",
}

// NormalizeStatus maps Steam's free-text status to a Status. A literal
// "none" (any case, surrounding whitespace ignored) is always Idle.
func NormalizeStatus(raw string) Status {
	if strings.EqualFold(strings.TrimSpace(raw), "none") {
		return Idle
	}
	lower := strings.ToLower(raw)
	for _, kw := range statusKeywords {
		if strings.Contains(lower, kw.substr) {
			return kw.status
		}
	}
	return Idle
}

func hasActiveKeyword(raw string) bool {
	lower := strings.ToLower(raw)
	for _, kw := range activeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
