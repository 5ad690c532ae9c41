// Package steplog holds the state transitions behind a step log panel:
// when the log worker runs, how the elapsed duration label is kept, and
// what the panel shows. Nothing here performs I/O; callers carry out the
// returned effects.
package steplog

import (
	"github.com/cdstail/cdstail/internal/api"
)

// Effect is the worker action a transition asks for
type Effect int

const (
	EffectNone Effect = iota
	EffectStartWorker
	EffectResumeWorker
	EffectStopWorker
)

func (e Effect) String() string {
	switch e {
	case EffectStartWorker:
		return "start"
	case EffectResumeWorker:
		return "resume"
	case EffectStopWorker:
		return "stop"
	default:
		return "none"
	}
}

type workerState int

const (
	workerAbsent workerState = iota
	workerRunning
	workerPaused
)

// Step describes the step a panel belongs to
type Step struct {
	Name     string
	Optional bool
	// Order is the 0-based ordinal of the step in its job
	Order int
	// Count is the number of steps in the job
	Count int
}

// IsLast reports whether the step is the final one of its job
func (s Step) IsLast() bool {
	return s.Order == s.Count-1
}

// Activation decides whether the log panel is visible and therefore whether
// its worker runs. At most one worker is ever created; hiding the panel
// pauses it.
type Activation struct {
	visible bool
	status  string
	worker  workerState
}

// Init applies the initial step status, then opens the panel for a step that
// is building, a required step that failed, or the last step of a finished
// node run.
func (a *Activation) Init(step Step, status *api.StepStatus, parentStatus string) Effect {
	a.OnStatusUpdate(status)

	nodeRunDone := api.IsTerminalStatus(parentStatus)
	if a.status == api.StatusBuilding ||
		(a.status == api.StatusFail && !step.Optional) ||
		(nodeRunDone && step.IsLast()) {
		return a.SetVisible(true)
	}
	return EffectNone
}

// OnStatusUpdate caches a pushed step status. The first non-empty status
// seen while visible (re)initialises the worker. A nil status is ignored.
func (a *Activation) OnStatusUpdate(status *api.StepStatus) Effect {
	if status == nil {
		return EffectNone
	}

	effect := EffectNone
	if status.Status != "" && a.status == "" && a.visible {
		effect = a.ensureWorker()
	}
	a.status = status.Status
	return effect
}

// SetVisible shows or hides the panel
func (a *Activation) SetVisible(visible bool) Effect {
	a.visible = visible
	if visible {
		return a.ensureWorker()
	}
	if a.worker == workerRunning {
		a.worker = workerPaused
		return EffectStopWorker
	}
	return EffectNone
}

// Toggle flips visibility
func (a *Activation) Toggle() Effect {
	return a.SetVisible(!a.visible)
}

// Visible reports whether the panel is shown
func (a *Activation) Visible() bool {
	return a.visible
}

// CurrentStatus is the last cached step status
func (a *Activation) CurrentStatus() string {
	return a.status
}

// WorkerCreated reports whether a worker has been started
func (a *Activation) WorkerCreated() bool {
	return a.worker != workerAbsent
}

func (a *Activation) ensureWorker() Effect {
	switch a.worker {
	case workerAbsent:
		a.worker = workerRunning
		return EffectStartWorker
	case workerPaused:
		a.worker = workerRunning
		return EffectResumeWorker
	default:
		return EffectNone
	}
}
