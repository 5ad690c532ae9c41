package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bugsnag/bugsnag-go/v2"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cdstail/cdstail/internal/api"
	"github.com/cdstail/cdstail/internal/clipboard"
	"github.com/cdstail/cdstail/internal/markup"
	"github.com/cdstail/cdstail/internal/steplog"
	"github.com/cdstail/cdstail/internal/timeutil"
	"github.com/cdstail/cdstail/internal/ui"
	"github.com/cdstail/cdstail/internal/ui/logging"
	"github.com/cdstail/cdstail/internal/worker"
	cdstailBugsnag "github.com/cdstail/cdstail/pkg/bugsnag"
)

// DefaultStatusInterval is how often the node run is polled for step statuses
const DefaultStatusInterval = 5 * time.Second

// StepState represents the current state of the step command
type StepState int

const (
	StepStateLoading StepState = iota
	StepStateWatching
	StepStateDone
	StepStateError
)

// StepConfig contains configuration for the step command
type StepConfig struct {
	ui.DisplayConfig

	Client    api.Client
	NewWorker worker.Factory
	// Worker carries the identity and run coordinates. RunJobID and StepOrder
	// are filled in once the target is resolved.
	Worker worker.Config

	JobRunID     int64
	JobPattern   string
	StepSelector string

	Translator markup.Translator
	Copier     clipboard.Copier
	Clock      timeutil.Clock
	Tick       logging.TickFunc

	StatusInterval time.Duration
}

// StepView is the Bubbletea model for the step command. It resolves the step,
// hosts its log panel and keeps the panel fed with step statuses.
type StepView struct {
	ctx     context.Context
	state   StepState
	spinner *ui.SpinnerModel
	err     *ui.UIError

	nodeRun *api.NodeRun
	jobRun  *api.NodeJobRun
	step    steplog.Step
	child   *logging.StepLogModel
	polling bool

	conf StepConfig
}

// NewStepView creates a new step view
func NewStepView(ctx context.Context, conf StepConfig) *StepView {
	if conf.StatusInterval <= 0 {
		conf.StatusInterval = DefaultStatusInterval
	}
	if conf.Tick == nil {
		conf.Tick = tea.Tick
	}
	return &StepView{
		ctx:     ctx,
		state:   StepStateLoading,
		spinner: ui.NewSpinner("Loading node run..."),
		conf:    conf,
	}
}

// Error returns the error if any occurred during execution
func (m *StepView) Error() error {
	if m.err == nil {
		return nil
	}
	return m.err
}

// Messages

type nodeRunLoadedMsg struct {
	run *api.NodeRun
}

type nodeRunRefreshedMsg struct {
	run *api.NodeRun
}

type statusPollMsg struct{}

type statusPollFailedMsg struct {
	err error
}

func (m *StepView) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadNodeRun}
	if !m.conf.SimpleOutput() {
		cmds = append(cmds, m.spinner.Init())
	}
	return tea.Batch(cmds...)
}

func (m *StepView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.SignalCancelMsg:
		if m.conf.SimpleOutput() {
			fmt.Fprintf(os.Stderr, "\nStopped watching step log\n")
		}
		return m, m.quit(ui.NewUserCancelledError())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, m.quit(ui.NewUserCancelledError())
		}
		return m, m.forward(msg)

	case nodeRunLoadedMsg:
		return m, m.onNodeRunLoaded(msg.run)

	case statusPollMsg:
		return m, m.refreshNodeRun

	case nodeRunRefreshedMsg:
		return m, m.onNodeRunRefreshed(msg.run)

	case statusPollFailedMsg:
		slog.Warn("Failed to refresh node run", "error", msg.err)
		return m, m.scheduleStatusPoll()

	case *ui.UIError:
		m.state = StepStateError
		m.reportError(msg)
		if m.conf.SimpleOutput() {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg.Error())
		}
		msg.SilentExit = true // shown in View()
		m.err = msg
		m.closeChild()
		return m, tea.Quit

	default:
		if m.state == StepStateLoading {
			if !m.conf.SimpleOutput() {
				_, cmd := m.spinner.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, m.forward(msg)
	}
}

// forward hands msg to the log panel and ends simple output once the log
// worker has finished
func (m *StepView) forward(msg tea.Msg) tea.Cmd {
	if m.child == nil {
		return nil
	}

	_, cmd := m.child.Update(msg)

	if m.child.Finished() && m.state == StepStateWatching {
		m.state = StepStateDone
		if err := m.child.Error(); err != nil {
			return func() tea.Msg { return ui.NewAPIError(fmt.Errorf("step log stream failed: %w", err)) }
		}
		if m.conf.SimpleOutput() {
			m.closeChild()
			return tea.Quit
		}
	}
	return cmd
}

func (m *StepView) onNodeRunLoaded(run *api.NodeRun) tea.Cmd {
	m.nodeRun = run

	jobRun, err := steplog.ResolveJobRun(run, m.conf.JobRunID, m.conf.JobPattern)
	if err != nil {
		return func() tea.Msg { return ui.NewValidationError(err) }
	}
	step, err := steplog.ResolveStep(jobRun, m.conf.StepSelector)
	if err != nil {
		return func() tea.Msg { return ui.NewValidationError(err) }
	}
	m.jobRun = jobRun
	m.step = step

	workerConf := m.conf.Worker
	workerConf.RunJobID = jobRun.ID
	workerConf.StepOrder = step.Order

	slog.Debug("Resolved step",
		"job_run", jobRun.ID,
		"job", jobRun.Job.Action.Name,
		"step", step.Name,
		"order", step.Order,
		"node_run_status", run.Status,
	)

	m.child = logging.NewStepLogModel(m.ctx, logging.StepLogConfig{
		DisplayConfig: m.conf.DisplayConfig,
		NewWorker:     m.conf.NewWorker,
		Worker:        workerConf,
		Step:          step,
		Status:        jobRun.Job.StepStatusFor(step.Order),
		ParentStatus:  run.Status,
		// nothing can be toggled without a TUI
		Open:       m.conf.SimpleOutput(),
		Translator: m.conf.Translator,
		Copier:     m.conf.Copier,
		Clock:      m.conf.Clock,
		Tick:       m.conf.Tick,
	})
	m.state = StepStateWatching

	cmds := []tea.Cmd{m.child.Init()}
	if err := m.child.Error(); err != nil {
		return func() tea.Msg { return ui.NewInternalError(err) }
	}
	if !api.IsTerminalStatus(run.Status) {
		m.polling = true
		cmds = append(cmds, m.scheduleStatusPoll())
	}
	return tea.Batch(cmds...)
}

func (m *StepView) onNodeRunRefreshed(run *api.NodeRun) tea.Cmd {
	m.nodeRun = run

	var cmds []tea.Cmd
	if jobRun, ok := run.FindJobRun(m.jobRun.ID); ok {
		m.jobRun = jobRun
		if status := jobRun.Job.StepStatusFor(m.step.Order); status != nil {
			cmds = append(cmds, m.forward(logging.StepStatusMsg{Status: status}))
		}
	}

	if api.IsTerminalStatus(run.Status) {
		slog.Debug("Node run finished, status polling stopped", "status", run.Status)
		m.polling = false
	} else {
		cmds = append(cmds, m.scheduleStatusPoll())
	}
	return tea.Batch(cmds...)
}

func (m *StepView) scheduleStatusPoll() tea.Cmd {
	if !m.polling {
		return nil
	}
	return m.conf.Tick(m.conf.StatusInterval, func(time.Time) tea.Msg {
		return statusPollMsg{}
	})
}

func (m *StepView) quit(err *ui.UIError) tea.Cmd {
	m.err = err
	m.state = StepStateDone
	m.closeChild()
	return tea.Quit
}

func (m *StepView) closeChild() {
	if m.child != nil {
		m.child.Close()
	}
}

func (m *StepView) reportError(err *ui.UIError) {
	if err.Type == ui.ErrorTypeUserCancelled || cdstailBugsnag.IsUserCancellation(err.Err) {
		return
	}

	metadata := bugsnag.MetaData{
		"step": {
			"error_type": fmt.Sprintf("%d", err.Type),
			"state":      fmt.Sprintf("%d", m.state),
			"project":    m.conf.Worker.Key,
			"workflow":   m.conf.Worker.WorkflowName,
		},
	}

	severity := bugsnag.SeverityError
	if err.Type == ui.ErrorTypeValidation || err.Type == ui.ErrorTypeAuth {
		severity = bugsnag.SeverityWarning
	}
	cdstailBugsnag.NotifyWithMetadata(m.ctx, err.Err, severity, metadata)
}

// Commands (async operations)

func (m *StepView) getNodeRun() (*api.NodeRun, error) {
	w := m.conf.Worker
	return m.conf.Client.GetNodeRun(m.ctx, w.Key, w.WorkflowName, w.Number, w.NodeRunID)
}

func (m *StepView) loadNodeRun() tea.Msg {
	run, err := m.getNodeRun()
	if err != nil {
		return ui.NewAPIError(fmt.Errorf("failed to load node run: %w", err))
	}
	return nodeRunLoadedMsg{run: run}
}

func (m *StepView) refreshNodeRun() tea.Msg {
	run, err := m.getNodeRun()
	if err != nil {
		return statusPollFailedMsg{err: err}
	}
	return nodeRunRefreshedMsg{run: run}
}

// View renders the step view
func (m *StepView) View() string {
	if m.conf.SimpleOutput() {
		return ""
	}

	switch m.state {
	case StepStateLoading:
		return m.spinner.View()

	case StepStateError:
		return ui.FormatError(m.err)
	}

	var output strings.Builder
	if m.nodeRun != nil {
		output.WriteString(m.renderHeader())
		output.WriteString("\n\n")
	}
	if m.child != nil {
		output.WriteString(m.child.View())
		output.WriteString("\n")
	}
	output.WriteString(ui.HelpStyle.Render("q: quit"))
	return output.String()
}

func (m *StepView) renderHeader() string {
	w := m.conf.Worker
	title := ui.TitleStyle.Render(fmt.Sprintf("%s/%s #%d", w.Key, w.WorkflowName, m.nodeRun.Number))
	if m.nodeRun.SubNumber > 0 {
		title += ui.TitleStyle.Render(fmt.Sprintf(".%d", m.nodeRun.SubNumber))
	}

	parts := []string{title}
	if m.jobRun != nil {
		parts = append(parts, "job "+ui.BoldStyle.Render(m.jobRun.Job.Action.Name))
	}
	parts = append(parts, ui.ColorizeStatus(m.nodeRun.Status))
	return strings.Join(parts, "  ")
}

// Polling reports whether the node run is still polled for statuses
func (m *StepView) Polling() bool {
	return m.polling
}
