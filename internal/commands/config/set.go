package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cdstail/cdstail/pkg/config"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in ~/.cdstail/config.yaml

Examples:
  cdstail config set api-url https://cds.example.com/cdsapi
  cdstail config set transport websocket
  cdstail config set copy-format html
  cdstail config set poll-interval 5s`,
		Args: cobra.ExactArgs(2),
		RunE: runSet,
	}
}

func runSet(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	key := args[0]
	value := args[1]

	if !config.IsValidUserFacingKey(key) {
		errOut := cmd.ErrOrStderr()
		//nolint:errcheck // Writing to stderr, error not actionable
		fmt.Fprintf(errOut, "Error: '%s' is not a recognized configuration key\n\n", key)
		//nolint:errcheck // Writing to stderr, error not actionable
		fmt.Fprintf(errOut, "Valid configuration keys:\n")
		for _, validKey := range config.GetUserFacingKeys() {
			//nolint:errcheck // Writing to stderr, error not actionable
			fmt.Fprintf(errOut, "  %s - %s\n", validKey, config.GetConfigKeyDescription(validKey))
		}
		//nolint:errcheck // Writing to stderr, error not actionable
		fmt.Fprintf(errOut, "\nNote: session-token is managed via 'cdstail login'\n")
		return fmt.Errorf("invalid configuration key")
	}

	if err := config.ValidateValue(key, value); err != nil {
		return err
	}

	var typedValue any
	switch strings.ToLower(value) {
	case "true":
		typedValue = true
	case "false":
		typedValue = false
	default:
		typedValue = value
	}

	viper.Set(key, typedValue)

	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %v\n", key, typedValue)
	return nil
}
