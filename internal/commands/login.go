package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdstail/cdstail/internal/api"
	"github.com/cdstail/cdstail/internal/auth"
	"github.com/cdstail/cdstail/internal/ui"
	"github.com/cdstail/cdstail/pkg/config"
)

type loginOptions struct {
	apiURL     string
	user       string
	token      string
	tokenStdin bool
}

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store CDS credentials",
		Long: `Check a CDS username and session token against the API and store them in the configuration.

Example:
  cdstail login --api-url https://cds.example.com/cdsapi --user alice --token <session-token>
  echo "$TOKEN" | cdstail login --user alice --token-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "CDS API base URL, stored as api-url")
	cmd.Flags().StringVar(&opts.user, "user", "", "CDS username")
	cmd.Flags().StringVar(&opts.token, "token", "", "Session token")
	cmd.Flags().BoolVar(&opts.tokenStdin, "token-stdin", false, "Read the session token from stdin")
	cmd.MarkFlagsMutuallyExclusive("token", "token-stdin")

	return cmd
}

func runLogin(cmd *cobra.Command, opts loginOptions) error {
	cmd.SilenceUsage = true

	cfg, err := config.GetConfigFromContext(cmd)
	if err != nil {
		return ui.NewValidationError(fmt.Errorf("failed to get config: %w", err))
	}

	if opts.tokenStdin {
		opts.token, err = readToken(cmd.InOrStdin())
		if err != nil {
			return ui.NewValidationError(err)
		}
	}

	candidate := *cfg
	if opts.apiURL != "" {
		candidate.APIURL = opts.apiURL
	}
	if opts.user != "" {
		candidate.User = opts.user
	}
	if opts.token != "" {
		candidate.SessionToken = opts.token
	}

	apiURL, err := candidate.RequireAPIURL()
	if err != nil {
		return ui.NewConfigurationError(err)
	}

	client, err := api.NewClient(api.Options{
		BaseURL:     apiURL,
		Credentials: auth.NewStore(&candidate),
	})
	if err != nil {
		return ui.NewValidationError(fmt.Errorf("failed to create API client: %w", err))
	}

	spinner := ui.NewSimpleSpinner("Checking credentials...")
	spinner.Start()
	me, err := client.GetMe(cmd.Context())
	spinner.Stop()
	if err != nil {
		return ui.NewAuthError(fmt.Errorf("login failed: %w", err))
	}

	if candidate.User == "" {
		candidate.User = me.Username
	}
	if err := config.Save(&candidate); err != nil {
		return ui.NewConfigurationError(fmt.Errorf("failed to save credentials: %w", err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", me.Username)
	return nil
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("no token on stdin")
	}
	return token, nil
}
