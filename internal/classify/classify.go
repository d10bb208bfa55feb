// Package classify labels a project by how recently anyone worked on it.
package classify

import (
	"errors"
	"fmt"
	"time"
)

// Status is a project's activity label.
type Status string

const (
	Active  Status = "active"
	Recent  Status = "recent"
	Stale   Status = "stale"
	Dormant Status = "dormant"
)

// Statuses lists every status from most to least active.
var Statuses = []Status{Active, Recent, Stale, Dormant}

// Rank orders statuses from most active (0) to least active (3).
// Unknown statuses rank last.
func (s Status) Rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return len(Statuses)
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Thresholds are day boundaries between statuses.
type Thresholds struct {
	ActiveDays int
	RecentDays int
	StaleDays  int

	// ConsiderVCS lets the last commit raise the effective date.
	ConsiderVCS bool

	// ConsiderEditor lets editor access raise the effective date.
	ConsiderEditor bool
}

// DefaultThresholds returns 7/30/90 days with every signal enabled.
func DefaultThresholds() Thresholds {
	return Thresholds{ActiveDays: 7, RecentDays: 30, StaleDays: 90, ConsiderVCS: true, ConsiderEditor: true}
}

// Validate requires 0 < active < recent < stale.
func (t Thresholds) Validate() error {
	if t.ActiveDays <= 0 {
		return errors.New("active threshold must be positive")
	}
	if t.ActiveDays >= t.RecentDays || t.RecentDays >= t.StaleDays {
		return fmt.Errorf("thresholds must increase: active %d, recent %d, stale %d",
			t.ActiveDays, t.RecentDays, t.StaleDays)
	}
	return nil
}

// Classifier maps activity signals to a Status. Thresholds are read from
// source on every call so settings changes apply to the next
// classification.
type Classifier struct {
	source func() Thresholds
	now    func() time.Time
}

// New creates a Classifier. A nil now uses time.Now.
func New(source func() Thresholds, now func() time.Time) *Classifier {
	if source == nil {
		source = DefaultThresholds
	}
	if now == nil {
		now = time.Now
	}
	return &Classifier{source: source, now: now}
}

// Thresholds returns the thresholds in force right now.
func (c *Classifier) Thresholds() Thresholds {
	return c.source()
}

// Classify returns the status for the given signals.
func (c *Classifier) Classify(lastModified time.Time, lastCommit, lastEditor *time.Time) Status {
	th := c.source()
	effective := EffectiveDate(lastModified, lastCommit, lastEditor, th)
	return StatusFor(DaysSince(effective, c.now()), th)
}

// EffectiveDate starts at lastModified and is only ever moved later by the
// enabled signals.
func EffectiveDate(lastModified time.Time, lastCommit, lastEditor *time.Time, th Thresholds) time.Time {
	effective := lastModified
	if th.ConsiderVCS && lastCommit != nil && lastCommit.After(effective) {
		effective = *lastCommit
	}
	if th.ConsiderEditor && lastEditor != nil && lastEditor.After(effective) {
		effective = *lastEditor
	}
	return effective
}

// DaysSince returns the number of whole days from t to now. A t in the
// future counts as zero days.
func DaysSince(t, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// StatusFor evaluates the thresholds in order; the first match wins.
func StatusFor(days int, th Thresholds) Status {
	switch {
	case days < th.ActiveDays:
		return Active
	case days < th.RecentDays:
		return Recent
	case days < th.StaleDays:
		return Stale
	default:
		return Dormant
	}
}
