package ui

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// DisplayConfigContextKey is the key used to store DisplayConfig in context
type DisplayConfigContextKey struct{}

// GetDisplayConfigContextKey returns the key used to store DisplayConfig in context
func GetDisplayConfigContextKey() DisplayConfigContextKey {
	return DisplayConfigContextKey{}
}

// DisplayConfig contains display-related configuration
type DisplayConfig struct {
	DisableAnimation bool
	IsInteractive    bool
	// NoColor strips escape sequences from step logs in simple output
	NoColor bool
}

func (d DisplayConfig) SimpleOutput() bool {
	return !d.IsInteractive || d.DisableAnimation
}

// displayInputs are the facts NewDisplayConfig decides from
type displayInputs struct {
	noColor          bool
	noAnsi           bool
	disableAnimation bool
	verbose          bool
	stdoutIsTTY      bool
	stderrIsStdout   bool
}

func resolveDisplay(in displayInputs) DisplayConfig {
	disableAnimation := in.noColor || in.noAnsi || in.disableAnimation

	// Verbose logs only corrupt the TUI when they land on the same file (2>&1)
	verboseForcesSimple := in.verbose && in.stderrIsStdout

	return DisplayConfig{
		DisableAnimation: disableAnimation,
		IsInteractive:    in.stdoutIsTTY && !disableAnimation && !verboseForcesSimple,
		NoColor:          in.noColor || in.noAnsi || !in.stdoutIsTTY,
	}
}

// NewDisplayConfig extracts display options from persistent flags and TTY detection
func NewDisplayConfig(cmd *cobra.Command, verbose bool) (DisplayConfig, error) {
	in := displayInputs{
		verbose:     verbose,
		stdoutIsTTY: isatty.IsTerminal(os.Stdout.Fd()),
	}
	in.noColor, _ = cmd.Flags().GetBool("no-color")
	in.noAnsi, _ = cmd.Flags().GetBool("no-ansi")
	in.disableAnimation, _ = cmd.Flags().GetBool("disable-animation")

	if stat1, err1 := os.Stdout.Stat(); err1 == nil {
		if stat2, err2 := os.Stderr.Stat(); err2 == nil {
			in.stderrIsStdout = os.SameFile(stat1, stat2)
		}
	}

	opts := resolveDisplay(in)

	slog.Debug("Display options determined",
		"command", cmd.Name(),
		"no-color-flag", in.noColor,
		"no-ansi-flag", in.noAnsi,
		"disable-animation-flag", in.disableAnimation,
		"verbose-flag", verbose,
		"stdout-is-tty", in.stdoutIsTTY,
		"stderr-same-as-stdout", in.stderrIsStdout,
		"is-interactive", opts.IsInteractive,
		"simple-output", opts.SimpleOutput(),
	)

	return opts, nil
}

// GetDisplayConfigFromContext retrieves DisplayConfig from the command context
func GetDisplayConfigFromContext(cmd *cobra.Command) (DisplayConfig, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return DisplayConfig{}, fmt.Errorf("command context is nil")
	}

	opts, ok := ctx.Value(GetDisplayConfigContextKey()).(DisplayConfig)
	if !ok {
		return DisplayConfig{}, fmt.Errorf("display options not found in context")
	}

	return opts, nil
}
