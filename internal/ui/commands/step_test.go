package commands

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cdstail/cdstail/internal/api"
	apimock "github.com/cdstail/cdstail/internal/api/mock"
	"github.com/cdstail/cdstail/internal/timeutil"
	"github.com/cdstail/cdstail/internal/ui"
	uitesting "github.com/cdstail/cdstail/internal/ui/testing"
	"github.com/cdstail/cdstail/internal/worker"
	workermock "github.com/cdstail/cdstail/internal/worker/mock"
)

type pollRecorder struct {
	scheduled map[time.Duration]int
}

func (r *pollRecorder) tick(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	if r.scheduled == nil {
		r.scheduled = map[time.Duration]int{}
	}
	r.scheduled[d]++
	return nil
}

func testNodeRun(runStatus, stepStatus string) *api.NodeRun {
	return &api.NodeRun{
		ID:     3,
		Number: 12,
		Status: runStatus,
		Stages: []api.Stage{{
			Name: "build",
			RunJobs: []api.NodeJobRun{
				{
					ID:     6,
					Status: api.StatusSuccess,
					Job:    api.ExecutedJob{Job: api.Job{Action: api.Action{Name: "lint", Actions: []api.Action{{Name: "golangci"}}}}},
				},
				{
					ID:     7,
					Status: runStatus,
					Job: api.ExecutedJob{
						Job: api.Job{Action: api.Action{Name: "compile-linux", Actions: []api.Action{
							{Name: "checkout", Type: "CheckoutApplication"},
							{Name: "go build", Type: "Script"},
							{Type: "artifactUpload"},
						}}},
						StepStatus: []api.StepStatus{
							{StepOrder: 0, Status: api.StatusSuccess},
							{StepOrder: 1, Status: stepStatus},
						},
					},
				},
			},
		}},
	}
}

type stepFixture struct {
	client *apimock.MockClient
	worker *workermock.MockWorker
	polls  *pollRecorder
}

func newStepFixture(t *testing.T) *stepFixture {
	return &stepFixture{
		client: apimock.NewMockClient(t),
		worker: workermock.NewMockWorker(t),
		polls:  &pollRecorder{},
	}
}

func (f *stepFixture) config() StepConfig {
	return StepConfig{
		DisplayConfig: ui.DisplayConfig{IsInteractive: true},
		Client:        f.client,
		NewWorker:     func() worker.Worker { return f.worker },
		Worker:        worker.Config{User: "alice", Session: "tok", Key: "PRJ", WorkflowName: "build", Number: 12, NodeRunID: 3},
		JobPattern:    "compile-*",
		StepSelector:  "go*",
		Clock:         &timeutil.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		Tick:          f.polls.tick,
	}
}

// drain runs cmd and the commands of any batch it returns
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, drain(c)...)
		}
		return msgs
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func isQuit(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestStepView(t *testing.T) {
	t.Run("resolves the step and opens a building log", func(t *testing.T) {
		f := newStepFixture(t)
		f.client.On("GetNodeRun", mock.Anything, "PRJ", "build", int64(12), int64(3)).
			Return(testNodeRun(api.StatusBuilding, api.StatusBuilding), nil).Once()
		f.worker.On("Start", mock.Anything, mock.MatchedBy(func(cfg worker.Config) bool {
			return cfg.RunJobID == 7 && cfg.StepOrder == 1 && cfg.User == "alice" && cfg.Session == "tok"
		})).Return(nil).Once()

		model := NewStepView(t.Context(), f.config())

		harness := uitesting.NewTestHarness(t, model)
		harness.
			Finally(uitesting.TestStep[*StepView]{
				Name:            "node_run_loaded",
				ExpectedMsgType: nodeRunLoadedMsg{},
				ViewAssert: func(t *testing.T, view string) {
					uitesting.AssertContains(t, view, "PRJ/build #12")
					uitesting.AssertContains(t, view, "compile-linux")
					uitesting.AssertContains(t, view, "go build")
					uitesting.AssertContains(t, view, "Loading log...")
				},
				ModelAssert: func(t *testing.T, m *StepView) {
					assert.Equal(t, StepStateWatching, m.state)
					assert.Equal(t, 1, m.step.Order)
					require.NotNil(t, m.child)
					assert.True(t, m.child.Visible())
					assert.True(t, m.Polling())
					assert.Equal(t, 1, f.polls.scheduled[DefaultStatusInterval])
				},
			}).
			Run(t)
	})

	t.Run("header above a closed panel", func(t *testing.T) {
		f := newStepFixture(t)
		f.client.On("GetNodeRun", mock.Anything, "PRJ", "build", int64(12), int64(3)).
			Return(testNodeRun(api.StatusBuilding, api.StatusBuilding), nil).Once()
		conf := f.config()
		conf.StepSelector = "0"

		model := NewStepView(t.Context(), conf)

		harness := uitesting.NewTestHarness(t, model)
		harness.
			Finally(uitesting.TestStep[*StepView]{
				Name:            "node_run_loaded",
				ExpectedMsgType: nodeRunLoadedMsg{},
				ViewGolden:      "step_view_header",
			}).
			Run(t)
	})

	t.Run("finished step stays closed in the TUI", func(t *testing.T) {
		f := newStepFixture(t)
		conf := f.config()
		conf.StepSelector = "0"

		m := NewStepView(t.Context(), conf)
		m.Update(nodeRunLoadedMsg{run: testNodeRun(api.StatusBuilding, api.StatusBuilding)})

		require.NotNil(t, m.child)
		assert.False(t, m.child.Visible())
		f.worker.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	})

	t.Run("status refresh is pushed to the log panel", func(t *testing.T) {
		f := newStepFixture(t)
		f.worker.On("Start", mock.Anything, mock.Anything).Return(nil).Once()

		m := NewStepView(t.Context(), f.config())
		m.Update(nodeRunLoadedMsg{run: testNodeRun(api.StatusBuilding, api.StatusBuilding)})
		require.Equal(t, api.StatusBuilding, m.child.Status())

		m.Update(nodeRunRefreshedMsg{run: testNodeRun(api.StatusBuilding, api.StatusFail)})
		assert.Equal(t, api.StatusFail, m.child.Status())
		assert.True(t, m.Polling())
		assert.Equal(t, 2, f.polls.scheduled[DefaultStatusInterval])

		m.Update(nodeRunRefreshedMsg{run: testNodeRun(api.StatusFail, api.StatusFail)})
		assert.False(t, m.Polling())
		assert.Equal(t, 2, f.polls.scheduled[DefaultStatusInterval])
	})

	t.Run("poll fetches the node run again", func(t *testing.T) {
		f := newStepFixture(t)
		f.worker.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
		f.client.On("GetNodeRun", mock.Anything, "PRJ", "build", int64(12), int64(3)).
			Return(testNodeRun(api.StatusSuccess, api.StatusSuccess), nil).Once()

		m := NewStepView(t.Context(), f.config())
		m.Update(nodeRunLoadedMsg{run: testNodeRun(api.StatusBuilding, api.StatusBuilding)})

		_, cmd := m.Update(statusPollMsg{})
		require.NotNil(t, cmd)
		msg := cmd()
		require.IsType(t, nodeRunRefreshedMsg{}, msg)

		m.Update(msg)
		assert.Equal(t, api.StatusSuccess, m.child.Status())
		assert.False(t, m.Polling())
	})

	t.Run("failed poll keeps polling", func(t *testing.T) {
		f := newStepFixture(t)
		f.worker.On("Start", mock.Anything, mock.Anything).Return(nil).Once()

		m := NewStepView(t.Context(), f.config())
		m.Update(nodeRunLoadedMsg{run: testNodeRun(api.StatusBuilding, api.StatusBuilding)})
		m.Update(statusPollFailedMsg{err: errors.New("timeout")})

		assert.Equal(t, StepStateWatching, m.state)
		assert.Equal(t, 2, f.polls.scheduled[DefaultStatusInterval])
	})

	t.Run("finished node run is not polled", func(t *testing.T) {
		f := newStepFixture(t)
		f.worker.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
		conf := f.config()
		conf.StepSelector = "2"

		m := NewStepView(t.Context(), conf)
		m.Update(nodeRunLoadedMsg{run: testNodeRun(api.StatusSuccess, api.StatusSuccess)})

		// last step of a finished run opens
		assert.True(t, m.child.Visible())
		assert.False(t, m.Polling())
		assert.Zero(t, f.polls.scheduled[DefaultStatusInterval])
		uitesting.AssertContains(t, m.View(), "artifactUpload")
	})

	t.Run("unknown step is a validation error", func(t *testing.T) {
		t.Setenv("CDSTAIL_CONFIG_PATH", filepath.Join(t.TempDir(), "config.yaml"))
		f := newStepFixture(t)
		conf := f.config()
		conf.StepSelector = "deploy*"

		m := NewStepView(t.Context(), conf)
		_, cmd := m.Update(nodeRunLoadedMsg{run: testNodeRun(api.StatusBuilding, api.StatusBuilding)})
		require.NotNil(t, cmd)

		msg := cmd()
		uiErr, ok := msg.(*ui.UIError)
		require.True(t, ok)
		assert.Equal(t, ui.ErrorTypeValidation, uiErr.Type)

		_, cmd = m.Update(msg)
		assert.True(t, isQuit(t, cmd))
		assert.Equal(t, StepStateError, m.state)
		assert.Contains(t, m.View(), "no step matching")
	})

	t.Run("api failure", func(t *testing.T) {
		f := newStepFixture(t)
		f.client.On("GetNodeRun", mock.Anything, "PRJ", "build", int64(12), int64(3)).
			Return(nil, api.ErrUnauthorized).Once()

		m := NewStepView(t.Context(), f.config())
		msg := m.loadNodeRun()

		uiErr, ok := msg.(*ui.UIError)
		require.True(t, ok)
		assert.Equal(t, ui.ErrorTypeAuth, uiErr.Type)
	})

	t.Run("q quits and tears the panel down", func(t *testing.T) {
		f := newStepFixture(t)
		f.worker.On("Start", mock.Anything, mock.Anything).Return(nil).Once()

		m := NewStepView(t.Context(), f.config())
		m.Update(nodeRunLoadedMsg{run: testNodeRun(api.StatusBuilding, api.StatusBuilding)})

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

		assert.True(t, isQuit(t, cmd))
		require.Error(t, m.Error())
		assert.True(t, ui.IsUserCancelled(m.Error()))

		// keys no longer reach the closed panel
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.True(t, m.child.Visible())
	})

	t.Run("signal cancels", func(t *testing.T) {
		f := newStepFixture(t)
		m := NewStepView(t.Context(), f.config())

		_, cmd := m.Update(ui.SignalCancelMsg{})

		assert.True(t, isQuit(t, cmd))
		assert.True(t, ui.IsUserCancelled(m.Error()))
	})

	t.Run("simple output quits when the worker finishes", func(t *testing.T) {
		f := newStepFixture(t)
		f.worker.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
		conf := f.config()
		conf.DisplayConfig = ui.DisplayConfig{IsInteractive: false}
		conf.StepSelector = "0"

		m := NewStepView(t.Context(), conf)
		_, initCmd := m.Update(nodeRunLoadedMsg{run: testNodeRun(api.StatusBuilding, api.StatusBuilding)})

		// the panel is forced open without a TUI
		require.True(t, m.child.Visible())

		f.worker.Finish(nil)
		msgs := drain(initCmd)
		require.Len(t, msgs, 1)

		_, cmd := m.Update(msgs[0])
		assert.True(t, isQuit(t, cmd))
		assert.Equal(t, StepStateDone, m.state)
		assert.Empty(t, m.View())
	})
}
