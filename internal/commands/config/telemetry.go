package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cdstail/cdstail/internal/ui"
	"github.com/cdstail/cdstail/pkg/config"
)

// newTelemetryCmd creates the telemetry command
func newTelemetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Manage error reporting",
		Long: `Manage crash and error reporting for the cdstail CLI.

Reporting can also be turned off for a single shell with:
  export CDSTAIL_TELEMETRY_DISABLED=true`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Enable error reporting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setTelemetry(cmd, true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Disable error reporting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setTelemetry(cmd, false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether error reporting is enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return ui.NewConfigurationError(fmt.Errorf("failed to load config: %w", err))
			}

			state := "disabled"
			if cfg.IsTelemetryEnabled() {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Telemetry: %s\n", state)
			return nil
		},
	})

	return cmd
}

func setTelemetry(cmd *cobra.Command, enabled bool) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return ui.NewConfigurationError(fmt.Errorf("failed to load config: %w", err))
	}

	cfg.TelemetryEnabled = &enabled
	if err := config.Save(cfg); err != nil {
		return ui.NewConfigurationError(fmt.Errorf("failed to save config: %w", err))
	}

	if enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Telemetry enabled")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Telemetry disabled")
	}
	return nil
}
