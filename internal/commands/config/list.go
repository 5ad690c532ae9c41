package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cdstail/cdstail/pkg/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration",
		Long: `List the configuration keys and values from ~/.cdstail/config.yaml.
The session token is never printed.

Example:
  cdstail config list`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	out := cmd.OutOrStdout()
	printed := 0
	for _, key := range config.GetUserFacingKeys() {
		if !viper.IsSet(key) {
			continue
		}
		value := viper.Get(key)
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		fmt.Fprintf(out, "%s: %v\n", key, value)
		printed++
	}

	if viper.GetString("session-token") != "" {
		fmt.Fprintln(out, "session-token: <set>")
		printed++
	}

	if printed == 0 {
		fmt.Fprintln(out, "No configuration found")
	}
	return nil
}
