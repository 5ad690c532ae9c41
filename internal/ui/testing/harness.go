// Package testing drives bubbletea models through a scripted sequence of
// messages and checks View() and model state after each one.
package testing

import (
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sebdah/goldie/v2"
)

// TestHarness runs a model the way the bubbletea runtime would, but
// synchronously: every command returned by Update is executed and its
// message fed back, up to maxCommandDepth levels deep. Batches are expanded.
//
// Expect steps intercept messages produced by commands, in order. A Finally
// step intercepts one last message and stops command processing.
//
//	harness := NewTestHarness(t, model)
//	harness.
//		Step(TestStep[*StepLogModel]{
//			Name: "toggle",
//			Msg:  tea.KeyMsg{Type: tea.KeyEnter},
//		}).
//		Finally(TestStep[*StepLogModel]{
//			Name:            "first_payload",
//			ExpectedMsgType: workerMsg{},
//		}).
//		Run(t)
type TestHarness[T tea.Model] struct {
	model              T
	steps              []TestStep[T]
	expectedSteps      []TestStep[T]
	finalStep          *TestStep[T]
	goldie             *goldie.Goldie
	currentExpectIndex int
	stopProcessing     bool
}

// TestStep is one scripted message and the assertions that follow it
type TestStep[T tea.Model] struct {
	// Name identifies the step in test output and golden file names
	Name string

	// Msg is sent to Update(). Nil only renders. Expect/Finally steps leave it nil.
	Msg tea.Msg

	// ExpectedMsgType restricts an Expect/Finally step to one message type,
	// given as a zero value
	ExpectedMsgType tea.Msg

	// MessageAssert inspects an intercepted message before Update() sees it
	MessageAssert func(t *testing.T, msg tea.Msg)

	// ViewGolden compares View() with testdata/<ViewGolden>.golden (go test -update)
	ViewGolden string

	// ViewAssert checks View() output
	ViewAssert func(t *testing.T, view string)

	// ModelAssert checks model state after Update()
	ModelAssert func(t *testing.T, m T)

	SkipViewAssertion bool
}

// NewTestHarness creates a harness. The ASCII color profile is forced so
// views are identical across terminals. Init() runs in Run().
func NewTestHarness[T tea.Model](t *testing.T, model T) *TestHarness[T] {
	t.Helper()

	lipgloss.SetColorProfile(termenv.Ascii)

	return &TestHarness[T]{
		model: model,
		goldie: goldie.New(t,
			goldie.WithFixtureDir("testdata"),
			goldie.WithNameSuffix(".golden"),
		),
	}
}

// Step appends a scripted step
func (h *TestHarness[T]) Step(step TestStep[T]) *TestHarness[T] {
	h.steps = append(h.steps, step)
	return h
}

// Expect appends a step matched against the next message produced by a command
func (h *TestHarness[T]) Expect(step TestStep[T]) *TestHarness[T] {
	h.expectedSteps = append(h.expectedSteps, step)
	return h
}

// Finally sets the step after which no more commands are processed
func (h *TestHarness[T]) Finally(step TestStep[T]) *TestHarness[T] {
	h.finalStep = &step
	return h
}

// Model returns the model as left by the last step
func (h *TestHarness[T]) Model() T {
	return h.model
}

// Run calls Init() then executes every step
func (h *TestHarness[T]) Run(t *testing.T) {
	t.Helper()

	h.currentExpectIndex = 0
	h.stopProcessing = false

	h.processCommands(t, h.model.Init(), 0)

	for _, step := range h.steps {
		if h.stopProcessing {
			break
		}

		t.Run(step.Name, func(t *testing.T) {
			if step.Msg != nil {
				h.update(t, step.Msg)
			}
			h.assertStep(t, step)
		})
	}
}

const maxCommandDepth = 10

func (h *TestHarness[T]) update(t *testing.T, msg tea.Msg) {
	t.Helper()

	updatedModel, cmd := h.model.Update(msg)
	model, ok := updatedModel.(T)
	if !ok {
		t.Fatalf("model %T is not %T", updatedModel, new(T))
	}
	h.model = model
	h.processCommands(t, cmd, 0)
}

// processCommands executes cmd and feeds its message back to Update().
// Tick-based commands would loop forever, hence the depth limit.
func (h *TestHarness[T]) processCommands(t *testing.T, cmd tea.Cmd, depth int) {
	t.Helper()

	if cmd == nil || h.stopProcessing {
		return
	}
	if depth >= maxCommandDepth {
		t.Log("max command depth exceeded")
		return
	}

	msg := cmd()
	if msg == nil {
		return
	}

	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			h.processCommands(t, c, depth+1)
		}
		return
	}

	if h.shouldIntercept(t, msg) {
		return
	}

	updatedModel, nextCmd := h.model.Update(msg)
	h.model = updatedModel.(T) //nolint:errcheck // Type assertion guaranteed by test harness generic type

	h.processCommands(t, nextCmd, depth+1)
}

// shouldIntercept matches msg against the pending Expect/Finally step
func (h *TestHarness[T]) shouldIntercept(t *testing.T, msg tea.Msg) bool {
	t.Helper()

	if len(h.expectedSteps) == 0 && h.finalStep == nil {
		return false
	}

	if h.currentExpectIndex < len(h.expectedSteps) {
		step := h.expectedSteps[h.currentExpectIndex]
		if !matchesMessageType(msg, step) {
			if isFrameworkMessage(msg) {
				return false
			}
			t.Fatalf("Unexpected message type during command processing.\nExpected step: %s (type: %s)\nGot message type: %T\nMessage: %+v",
				step.Name, typeName(step.ExpectedMsgType), msg, msg)
			return true
		}

		h.currentExpectIndex++
		h.interceptWith(t, msg, step)
		return true
	}

	if h.finalStep != nil {
		if !matchesMessageType(msg, *h.finalStep) {
			if !isFrameworkMessage(msg) {
				t.Fatalf("Unexpected message before Finally step.\nExpected Finally step: %s (type: %s)\nGot message type: %T\nMessage: %+v",
					h.finalStep.Name, typeName(h.finalStep.ExpectedMsgType), msg, msg)
			}
			return false
		}

		h.interceptWith(t, msg, *h.finalStep)
		h.stopProcessing = true
		return true
	}

	return false
}

func (h *TestHarness[T]) interceptWith(t *testing.T, msg tea.Msg, step TestStep[T]) {
	t.Helper()

	if step.MessageAssert != nil {
		step.MessageAssert(t, msg)
	}

	updatedModel, _ := h.model.Update(msg)
	h.model = updatedModel.(T) //nolint:errcheck // Type assertion guaranteed by test harness generic type

	t.Run(step.Name, func(t *testing.T) {
		h.assertStep(t, step)
	})
}

func (h *TestHarness[T]) assertStep(t *testing.T, step TestStep[T]) {
	t.Helper()

	if !step.SkipViewAssertion {
		view := normalizeView(h.model.View())

		if step.ViewGolden != "" {
			h.goldie.Assert(t, step.ViewGolden, []byte(view))
		}
		if step.ViewAssert != nil {
			step.ViewAssert(t, view)
		}
	}

	if step.ModelAssert != nil {
		step.ModelAssert(t, h.model)
	}
}

func typeName(msg tea.Msg) string {
	if msg == nil {
		return "any async message"
	}
	return reflect.TypeOf(msg).String()
}

// isFrameworkMessage reports messages that come from the runtime rather than
// from the model's own commands
func isFrameworkMessage(msg tea.Msg) bool {
	switch msg.(type) {
	case tea.BatchMsg, tea.KeyMsg, tea.MouseMsg, tea.WindowSizeMsg:
		return true
	default:
		return false
	}
}

// matchesMessageType checks msg against step.ExpectedMsgType, or accepts any
// non-framework message when it is unset
func matchesMessageType[T tea.Model](msg tea.Msg, step TestStep[T]) bool {
	if step.ExpectedMsgType != nil {
		return reflect.TypeOf(msg) == reflect.TypeOf(step.ExpectedMsgType)
	}
	return !isFrameworkMessage(msg)
}

// normalizeView trims surrounding whitespace and normalizes line endings
func normalizeView(view string) string {
	view = strings.TrimSpace(view)
	view = strings.ReplaceAll(view, "\r\n", "\n")
	return view
}

// AssertContains fails if view lacks substring
func AssertContains(t *testing.T, view, substring string) {
	t.Helper()
	if !strings.Contains(view, substring) {
		t.Errorf("View does not contain expected substring.\nExpected substring: %q\nActual view:\n%s", substring, view)
	}
}

// AssertNotContains fails if view contains substring
func AssertNotContains(t *testing.T, view, substring string) {
	t.Helper()
	if strings.Contains(view, substring) {
		t.Errorf("View contains unexpected substring.\nUnexpected substring: %q\nActual view:\n%s", substring, view)
	}
}
