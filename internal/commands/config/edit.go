package config

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open config file in editor",
		Long: `Open the configuration file in $EDITOR, then $VISUAL, falling back to
vi (notepad on Windows).

Example:
  cdstail config edit
  EDITOR=nano cdstail config edit`,
		Args: cobra.NoArgs,
		RunE: runEdit,
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		return fmt.Errorf("config file not found")
	}

	editor := pickEditor(os.Getenv)
	fmt.Fprintf(cmd.OutOrStdout(), "Opening %s with %s...\n", configFile, editor)

	editorCmd := exec.CommandContext(cmd.Context(), editor, configFile) //nolint:gosec // Editor from user's environment variable
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func pickEditor(getenv func(string) string) string {
	for _, name := range []string{"EDITOR", "VISUAL"} {
		if editor := getenv(name); editor != "" {
			return editor
		}
	}
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "vi"
}
