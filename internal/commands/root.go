package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	configCmd "github.com/cdstail/cdstail/internal/commands/config"
	"github.com/cdstail/cdstail/internal/ui"
	"github.com/cdstail/cdstail/internal/version"
	cdstailBugsnag "github.com/cdstail/cdstail/pkg/bugsnag"
	"github.com/cdstail/cdstail/pkg/config"
	"github.com/cdstail/cdstail/pkg/logrium"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cdstail",
		Short: "CDS step log CLI",
		Long:  "Command line interface for following CDS workflow step logs",
		// Errors are printed in main.go. Commands set SilenceUsage themselves so
		// unknown commands still show usage.
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")

			displayOpts, err := ui.NewDisplayConfig(cmd, verbose)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting display options: %v\n", err)
				os.Exit(1)
			}

			// Config is needed before logging to know the level
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(1)
			}

			if verbose {
				logFile, err := logrium.Setup(displayOpts.IsInteractive, cfg.GetLogLevel())
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error setting up logger: %v\n", err)
					os.Exit(1)
				}
				if logFile != "" {
					fmt.Fprintf(os.Stderr, "Debug logs: %s\n", logFile)
				}
			} else {
				logrium.Disable()
			}

			slog.Debug("Config loaded successfully")

			ctx := context.WithValue(cmd.Context(), config.GetContextKey(), cfg)
			ctx = context.WithValue(ctx, ui.GetDisplayConfigContextKey(), displayOpts)
			cmd.SetContext(ctx)

			cdstailBugsnag.SetCommandContext(cmd.CommandPath(), args)

			if !skipsVersionCheck(cmd) {
				version.PrintUpdateNotification(cmd.Context(), cfg.SkipVersionCheck)
			}
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output and animations")
	rootCmd.PersistentFlags().Bool("no-ansi", false, "Disable colored output and animations (equivalent to --no-color)")
	rootCmd.PersistentFlags().Bool("disable-animation", false, "Print the step log as plain lines instead of the interactive panel")

	rootCmd.AddCommand(NewStepCmd())
	rootCmd.AddCommand(NewLoginCmd())
	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(configCmd.NewConfigCmd())

	return rootCmd
}

// skipsVersionCheck is true for commands whose output should stay untouched
func skipsVersionCheck(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "version" || c.Name() == "config" {
			return true
		}
	}
	return false
}
