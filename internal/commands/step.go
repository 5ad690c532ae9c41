package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cdstail/cdstail/internal/api"
	"github.com/cdstail/cdstail/internal/auth"
	"github.com/cdstail/cdstail/internal/clipboard"
	"github.com/cdstail/cdstail/internal/markup"
	"github.com/cdstail/cdstail/internal/ui"
	uiCommands "github.com/cdstail/cdstail/internal/ui/commands"
	"github.com/cdstail/cdstail/internal/worker"
	"github.com/cdstail/cdstail/pkg/config"
	"github.com/cdstail/cdstail/pkg/projectconfig"
)

type stepOptions struct {
	nodeRunID int64
	jobRunID  int64
	job       string
	step      string
	format    string
	noFollow  bool
}

// stepTarget is the workflow run a step belongs to
type stepTarget struct {
	project  string
	workflow string
	number   int64
}

func NewStepCmd() *cobra.Command {
	var opts stepOptions

	cmd := &cobra.Command{
		Use:   "step [PROJECT WORKFLOW] NUMBER",
		Short: "Follow the log of a workflow step",
		Long: `Show the log of one step of a CDS workflow run, following it while the step runs.

PROJECT and WORKFLOW may be omitted when a .cdstail.toml in the current directory
or one of its parents sets them.

Examples:
  # Follow the "go build" step of the compile job
  cdstail step MY_PRJ build-and-test 42 --node-run 1337 --job compile --step "go build"

  # Pick the job run and step by id and ordinal
  cdstail step 42 --node-run 1337 --job-run 9001 --step 2

  # Print the current log once and exit
  cdstail step 42 --node-run 1337 --job "compile-*" --step 0 --no-follow`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("accepts NUMBER or PROJECT WORKFLOW NUMBER, received %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStepCommand(cmd, args, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.nodeRunID, "node-run", 0, "Node run id")
	cmd.Flags().Int64Var(&opts.jobRunID, "job-run", 0, "Job run id")
	cmd.Flags().StringVar(&opts.job, "job", "", "Job name or glob (e.g. 'compile-*')")
	cmd.Flags().StringVar(&opts.step, "step", "", "Step ordinal or name glob")
	cmd.Flags().StringVar(&opts.format, "format", "", "Format of the copied raw log (text/html), defaults to copy-format config")
	cmd.Flags().BoolVar(&opts.noFollow, "no-follow", false, "Print the current log and exit")
	_ = cmd.MarkFlagRequired("node-run")
	_ = cmd.MarkFlagRequired("step")
	cmd.MarkFlagsMutuallyExclusive("job-run", "job")

	return cmd
}

func runStepCommand(cmd *cobra.Command, args []string, opts stepOptions) error {
	cmd.SilenceUsage = true

	cfg, err := config.GetConfigFromContext(cmd)
	if err != nil {
		return ui.NewValidationError(fmt.Errorf("failed to get config: %w", err))
	}

	displayOpts, err := ui.GetDisplayConfigFromContext(cmd)
	if err != nil {
		return ui.NewValidationError(fmt.Errorf("failed to get display options: %w", err))
	}

	wd, err := os.Getwd()
	if err != nil {
		return ui.NewInternalError(fmt.Errorf("failed to get working directory: %w", err))
	}
	projectConf, err := projectconfig.LoadFromDir(wd)
	if err != nil {
		return ui.NewConfigurationError(err)
	}

	target, err := resolveStepTarget(args, projectConf)
	if err != nil {
		return ui.NewValidationError(err)
	}

	if opts.jobRunID == 0 && opts.job == "" {
		opts.job = projectConf.Job
	}
	if opts.jobRunID == 0 && opts.job == "" {
		return ui.NewValidationError(fmt.Errorf("one of --job-run or --job is required"))
	}

	format := opts.format
	if format == "" {
		format = projectConf.Format
	}
	if format == "" {
		format = cfg.GetCopyFormat()
	}
	if format != config.CopyFormatText && format != config.CopyFormatHTML {
		return ui.NewValidationError(fmt.Errorf("--format must be %q or %q", config.CopyFormatText, config.CopyFormatHTML))
	}

	apiURL, err := cfg.RequireAPIURL()
	if err != nil {
		return ui.NewConfigurationError(err)
	}

	store := auth.NewStore(cfg)
	session, err := store.SessionToken()
	if err != nil {
		return ui.NewAuthError(err)
	}

	client, err := api.NewClient(api.Options{
		BaseURL:     apiURL,
		Credentials: store,
	})
	if err != nil {
		return ui.NewValidationError(fmt.Errorf("failed to create API client: %w", err))
	}

	model := uiCommands.NewStepView(cmd.Context(), uiCommands.StepConfig{
		DisplayConfig: displayOpts,
		Client:        client,
		NewWorker:     worker.NewFactory(cfg.GetTransport()),
		Worker: worker.Config{
			User:         store.User(),
			Session:      session,
			APIURL:       apiURL,
			LogStreamURL: cfg.LogStreamURL,
			Key:          target.project,
			WorkflowName: target.workflow,
			Number:       target.number,
			NodeRunID:    opts.nodeRunID,
			PollInterval: cfg.GetPollInterval(),
			Once:         opts.noFollow,
		},
		JobRunID:     opts.jobRunID,
		JobPattern:   opts.job,
		StepSelector: opts.step,
		Translator:   markup.ForFormat(format),
		Copier:       clipboard.NewService(),
	})

	var programOpts []tea.ProgramOption
	if displayOpts.SimpleOutput() {
		programOpts = append(programOpts,
			tea.WithoutRenderer(),
			tea.WithInput(nil),
		)
	} else {
		programOpts = append(programOpts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(model, programOpts...)
	doneCh := ui.SetupSignalHandling(p, 0)
	defer close(doneCh)

	finalModel, err := p.Run()
	if err != nil {
		return ui.NewInternalError(fmt.Errorf("program error: %w", err))
	}

	//nolint:errcheck // Type assertion guaranteed by Bubbletea model structure
	m := finalModel.(*uiCommands.StepView)
	var uiErr *ui.UIError
	if errors.As(m.Error(), &uiErr) {
		// Already shown by the view
		if uiErr.SilentExit || uiErr.Type == ui.ErrorTypeUserCancelled {
			return nil
		}
		return uiErr
	}

	return nil
}

// resolveStepTarget reads PROJECT WORKFLOW NUMBER from args, taking project
// and workflow from the project file when only NUMBER is given
func resolveStepTarget(args []string, projectConf *projectconfig.ProjectConfig) (stepTarget, error) {
	var target stepTarget

	numberArg := args[len(args)-1]
	number, err := strconv.ParseInt(numberArg, 10, 64)
	if err != nil || number <= 0 {
		return target, fmt.Errorf("invalid run number %q", numberArg)
	}
	target.number = number

	if len(args) == 3 {
		target.project = args[0]
		target.workflow = args[1]
		return target, nil
	}

	target.project = projectConf.Project
	target.workflow = projectConf.Workflow
	if target.project == "" || target.workflow == "" {
		return target, fmt.Errorf("PROJECT and WORKFLOW are required when no %s sets them", projectconfig.FileName)
	}
	return target, nil
}
