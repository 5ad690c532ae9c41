package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cdstail/cdstail/pkg/config"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value from ~/.cdstail/config.yaml

Examples:
  cdstail config get api-url
  cdstail config get transport`,
		Args: cobra.ExactArgs(1),
		RunE: runGet,
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	key := args[0]
	if !config.IsValidUserFacingKey(key) {
		return fmt.Errorf("'%s' is not a recognized configuration key. Run 'cdstail config set --help' for valid keys", key)
	}

	if !viper.IsSet(key) {
		return fmt.Errorf("configuration key '%s' not set", key)
	}

	fmt.Fprintln(cmd.OutOrStdout(), viper.Get(key))
	return nil
}
