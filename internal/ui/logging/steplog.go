package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/cdstail/cdstail/internal/api"
	"github.com/cdstail/cdstail/internal/clipboard"
	"github.com/cdstail/cdstail/internal/markup"
	"github.com/cdstail/cdstail/internal/steplog"
	"github.com/cdstail/cdstail/internal/timeutil"
	"github.com/cdstail/cdstail/internal/ui"
	"github.com/cdstail/cdstail/internal/worker"
)

const (
	defaultPanelWidth  = 100
	defaultPanelHeight = 20
)

// TickFunc schedules fn after d. tea.Tick is used unless a test replaces it.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// StepLogConfig configures a StepLogModel
type StepLogConfig struct {
	ui.DisplayConfig

	// NewWorker creates the log worker the first time the panel opens
	NewWorker worker.Factory
	Worker    worker.Config

	Step         steplog.Step
	Status       *api.StepStatus
	ParentStatus string
	// Open shows the log on start whatever the step status
	Open bool

	Translator markup.Translator
	Copier     clipboard.Copier
	Clock      timeutil.Clock
	Tick       TickFunc

	// Out receives the translated log in simple output mode (default: stdout)
	Out io.Writer

	Width  int
	Height int
}

type stepLogKeys struct {
	Toggle key.Binding
	Copy   key.Binding
	Bottom key.Binding
	Top    key.Binding
	Scroll key.Binding
}

func newStepLogKeys() stepLogKeys {
	return stepLogKeys{
		Toggle: key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter/l", "toggle log")),
		Copy:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy raw log")),
		Bottom: key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
		Top:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
		// handled by the viewport, listed for help only
		Scroll: key.NewBinding(key.WithKeys("j", "k", "up", "down"), key.WithHelp("j/k", "scroll")),
	}
}

// StepLogModel is the log panel of one step. It decides when the log worker
// runs, keeps the duration label, holds the latest log and copies it on demand.
type StepLogModel struct {
	ctx    context.Context
	cancel context.CancelFunc
	conf   StepLogConfig

	activation steplog.Activation
	tracker    steplog.Tracker
	sink       *steplog.Sink
	worker     worker.Worker

	viewport viewport.Model
	spinner  *ui.SpinnerModel
	help     help.Model
	keys     stepLogKeys

	finished bool
	closed   bool
	copied   bool
	err      error
}

// NewStepLogModel creates the panel. Nothing starts until Init.
func NewStepLogModel(ctx context.Context, conf StepLogConfig) *StepLogModel {
	if ctx == nil {
		ctx = context.Background()
	}
	if conf.Clock == nil {
		conf.Clock = timeutil.SystemClock{}
	}
	if conf.Tick == nil {
		conf.Tick = tea.Tick
	}
	if conf.Translator == nil {
		conf.Translator = markup.PlainTranslator{}
	}
	if conf.Out == nil {
		conf.Out = os.Stdout
	}
	if conf.Width <= 0 {
		conf.Width = defaultPanelWidth
	}
	if conf.Height <= 0 {
		conf.Height = defaultPanelHeight
	}

	vp := viewport.New(conf.Width-4, conf.Height)

	return &StepLogModel{
		ctx:      ctx,
		conf:     conf,
		sink:     steplog.NewSink(conf.Translator),
		viewport: vp,
		spinner:  ui.NewSpinner("Loading log..."),
		help:     help.New(),
		keys:     newStepLogKeys(),
	}
}

// Messages

type workerMsg struct {
	payload string
}

type workerClosedMsg struct {
	err error
}

type durationTickMsg struct {
	at time.Time
}

type copyResultMsg struct {
	err error
}

// StepStatusMsg pushes a new status of the step to the panel
type StepStatusMsg struct {
	Status *api.StepStatus
}

func waitForWorker(w worker.Worker) tea.Cmd {
	ch := w.Response()
	return func() tea.Msg {
		payload, ok := <-ch
		if !ok {
			return workerClosedMsg{err: w.Err()}
		}
		return workerMsg{payload: payload}
	}
}

func (m *StepLogModel) Init() tea.Cmd {
	effect := m.activation.Init(m.conf.Step, m.conf.Status, m.conf.ParentStatus)
	if m.conf.Open && !m.activation.Visible() {
		effect = m.activation.SetVisible(true)
	}
	m.tracker.Seed(m.conf.Status, m.conf.Clock.Now())

	cmds := []tea.Cmd{m.carryOut(effect)}
	if !m.conf.SimpleOutput() {
		cmds = append(cmds, m.spinner.Init())
	}
	return tea.Batch(cmds...)
}

// carryOut performs the worker call an activation transition asks for
func (m *StepLogModel) carryOut(effect steplog.Effect) tea.Cmd {
	if effect != steplog.EffectNone {
		slog.Debug("Step log worker transition", "effect", effect.String(), "step", m.conf.Step.Name)
	}

	switch effect {
	case steplog.EffectStartWorker:
		if m.conf.NewWorker == nil {
			m.err = fmt.Errorf("no log worker configured")
			return nil
		}
		w := m.conf.NewWorker()
		ctx, cancel := context.WithCancel(m.ctx)
		if err := w.Start(ctx, m.conf.Worker); err != nil {
			cancel()
			m.err = fmt.Errorf("failed to start log worker: %w", err)
			return nil
		}
		m.worker = w
		m.cancel = cancel
		return waitForWorker(w)

	case steplog.EffectStopWorker:
		if m.worker != nil {
			m.worker.Stop()
		}

	case steplog.EffectResumeWorker:
		if m.worker != nil {
			m.worker.Resume()
		}
	}
	return nil
}

func (m *StepLogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workerMsg:
		if m.closed {
			return m, nil
		}
		return m, tea.Batch(m.applyPayload(msg.payload), waitForWorker(m.worker))

	case workerClosedMsg:
		m.finished = true
		if msg.err != nil {
			slog.Error("Step log worker failed", "step", m.conf.Step.Name, "error", msg.err)
			m.err = msg.err
		}
		if m.conf.SimpleOutput() && !m.closed {
			switch raw := m.sink.Raw(); {
			case raw != "":
				fmt.Fprintln(m.conf.Out, strings.TrimRight(raw, "\n"))
			case msg.err == nil:
				fmt.Fprintln(m.conf.Out, "No output")
			}
		}
		return m, nil

	case durationTickMsg:
		if m.tracker.Tick(m.conf.Clock.Now(), m.activation.CurrentStatus()) {
			return m, m.scheduleTick()
		}
		return m, nil

	case StepStatusMsg:
		if m.closed {
			return m, nil
		}
		return m, m.carryOut(m.activation.OnStatusUpdate(msg.Status))

	case copyResultMsg:
		m.copied = msg.err == nil
		if msg.err != nil {
			slog.Debug("Failed to copy step log", "error", msg.err)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.conf.Width = msg.Width
		m.viewport.Width = max(msg.Width-4, 1)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	default:
		if !m.conf.SimpleOutput() && m.sink.Loading() {
			_, cmd := m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m *StepLogModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.closed {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		m.copied = false
		return m.carryOut(m.activation.Toggle())
	case key.Matches(msg, m.keys.Copy):
		return m.CopyRaw()
	}

	if !m.activation.Visible() {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return nil
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

func (m *StepLogModel) applyPayload(payload string) tea.Cmd {
	if _, err := m.sink.Apply(payload); err != nil {
		slog.Warn("Ignoring step log message", "step", m.conf.Step.Name, "error", err)
		return nil
	}

	var cmd tea.Cmd
	if log := m.sink.Log(); log != nil {
		// the first log starts the duration ticks
		if m.tracker.Observe(log, m.conf.Clock.Now()) {
			cmd = m.scheduleTick()
		}
		m.setContent()
	}
	return cmd
}

func (m *StepLogModel) scheduleTick() tea.Cmd {
	return m.conf.Tick(steplog.TickInterval, func(t time.Time) tea.Msg {
		return durationTickMsg{at: t}
	})
}

func (m *StepLogModel) setContent() {
	text := m.sink.Text()
	if m.conf.NoColor {
		text = ansi.Strip(text)
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.TrimRight(text, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// CopyRaw writes the translated log to the clipboard. Failures are only logged.
func (m *StepLogModel) CopyRaw() tea.Cmd {
	if m.conf.Copier == nil {
		return nil
	}
	raw := m.sink.Raw()
	copier := m.conf.Copier
	return func() tea.Msg {
		return copyResultMsg{err: copier.Copy(raw)}
	}
}

// Raw is the translated log, or "" before one arrives
func (m *StepLogModel) Raw() string {
	return m.sink.Raw()
}

// Close tears the panel down: the worker is cancelled and ticks stop
// mutating the duration.
func (m *StepLogModel) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.tracker.Close()
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *StepLogModel) View() string {
	if m.conf.SimpleOutput() {
		return ""
	}

	header := ui.StatusIcon(m.activation.CurrentStatus()) + " " + m.conf.Step.Name
	if label := m.tracker.Label(); label != "" {
		header += " " + ui.DurationStyle.Render(label)
	}

	var out strings.Builder
	if !m.activation.Visible() {
		out.WriteString("▸ " + header)
	} else {
		out.WriteString(ui.RenderPanel(header, m.panelContent(), m.conf.Width))
	}
	out.WriteString("\n")
	out.WriteString(m.renderHelp())
	return out.String()
}

func (m *StepLogModel) panelContent() string {
	switch {
	case m.err != nil:
		return strings.TrimSpace(ui.FormatError(m.err))
	case m.sink.Loading():
		return m.spinner.View()
	case m.sink.Text() == "":
		return ui.PendingStyle.Render("No output")
	default:
		return m.viewport.View()
	}
}

func (m *StepLogModel) renderHelp() string {
	bindings := []key.Binding{m.keys.Toggle, m.keys.Copy}
	if m.activation.Visible() && !m.sink.Loading() {
		bindings = append(bindings, m.keys.Scroll, m.keys.Bottom, m.keys.Top)
	}
	text := m.help.ShortHelpView(bindings)
	if m.copied {
		text += "  " + ui.SuccessStyle.Render("copied")
	}
	return ui.HelpStyle.Render(text)
}

// Visible reports whether the log panel is open
func (m *StepLogModel) Visible() bool {
	return m.activation.Visible()
}

// Loading reports whether the panel waits for its first log
func (m *StepLogModel) Loading() bool {
	return m.sink.Loading()
}

// DurationLabel is the "(2m 5s)" label next to the step name
func (m *StepLogModel) DurationLabel() string {
	return m.tracker.Label()
}

// Finished reports whether the worker has ended
func (m *StepLogModel) Finished() bool {
	return m.finished
}

// Error returns the error that ended the worker, if any
func (m *StepLogModel) Error() error {
	return m.err
}

// Status is the last step status pushed to the panel
func (m *StepLogModel) Status() string {
	return m.activation.CurrentStatus()
}
