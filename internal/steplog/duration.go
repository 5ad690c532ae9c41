package steplog

import (
	"time"

	"github.com/cdstail/cdstail/internal/api"
	"github.com/cdstail/cdstail/internal/timeutil"
)

// TickInterval is how often a running duration label is refreshed
const TickInterval = 5 * time.Second

// Tracker keeps the "(2m 5s)" label of a step. The label is recomputed on
// each tick until the step status is terminal.
type Tracker struct {
	start   time.Time
	done    time.Time
	label   string
	ticking bool
	started bool
	closed  bool
}

// Seed computes the label from a step status that already carries a start time
func (t *Tracker) Seed(status *api.StepStatus, now time.Time) {
	if status == nil || status.Start.IsZero() {
		return
	}
	t.start = status.Start
	t.done = status.Done
	t.label = format(t.start, t.end(now))
}

// Observe takes the bounds from a log payload. The label is only computed if
// none exists yet. The first call returns true: the caller should schedule
// ticks from then on.
func (t *Tracker) Observe(log *api.Log, now time.Time) bool {
	if t.closed || log == nil {
		return false
	}

	if log.Start.IsSet() {
		t.start = log.Start.Time()
	}
	t.done = time.Time{}
	if log.Done.IsSet() {
		t.done = log.Done.Time()
	}

	if t.label == "" && !t.start.IsZero() {
		t.label = format(t.start, t.end(now))
	}

	if t.started {
		return false
	}
	t.started = true
	t.ticking = true
	return true
}

// Tick recomputes the label. It returns false, and the caller must stop
// scheduling ticks, once status is terminal or the tracker is closed.
func (t *Tracker) Tick(now time.Time, status string) bool {
	if t.closed || !t.ticking {
		return false
	}

	if !t.start.IsZero() {
		t.label = format(t.start, t.end(now))
	}

	if api.IsTerminalStatus(status) {
		t.ticking = false
		return false
	}
	return true
}

// Close stops the tracker for good; later ticks are no-ops
func (t *Tracker) Close() {
	t.closed = true
	t.ticking = false
}

// Ticking reports whether ticks are still expected
func (t *Tracker) Ticking() bool {
	return t.ticking
}

// Label is the parenthesised duration, or "" before anything is known
func (t *Tracker) Label() string {
	return t.label
}

func (t *Tracker) end(now time.Time) time.Time {
	if !t.done.IsZero() {
		return t.done
	}
	return now
}

func format(start, end time.Time) string {
	return "(" + timeutil.FormatDuration(start, end) + ")"
}
