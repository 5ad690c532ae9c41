package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cdstail/cdstail/pkg/logrium"
)

const (
	DefaultConfigDir  = ".cdstail"
	DefaultConfigFile = "config.yaml"

	DefaultPollInterval = 2 * time.Second
)

// Copy formats accepted by copy-format
const (
	CopyFormatText = "text"
	CopyFormatHTML = "html"
)

// Transports accepted by transport
const (
	TransportPoll      = "poll"
	TransportWebsocket = "websocket"
)

// Config holds the CLI configuration
type Config struct {
	APIURL           string
	LogStreamURL     string
	User             string
	SessionToken     string
	SkipVersionCheck bool
	LogLevel         string
	CopyFormat       string
	Transport        string
	PollInterval     time.Duration
	TelemetryEnabled *bool // nil means unset
}

// ValidUserFacingConfigKeys lists config keys that users should interact with.
// session-token is managed by 'cdstail login'.
var ValidUserFacingConfigKeys = map[string]bool{
	"api-url":            true,
	"logstream-url":      true,
	"user":               true,
	"skip-version-check": true,
	"log-level":          true,
	"telemetry":          true,
	"copy-format":        true,
	"transport":          true,
	"poll-interval":      true,
}

// IsValidUserFacingKey checks if a config key is a recognized user-facing key
func IsValidUserFacingKey(key string) bool {
	return ValidUserFacingConfigKeys[key]
}

// GetConfigKeyDescription returns a description for a config key
func GetConfigKeyDescription(key string) string {
	descriptions := map[string]string{
		"api-url":            "CDS API base URL (e.g., https://cds.example.com/cdsapi)",
		"logstream-url":      "Websocket endpoint for streamed step logs",
		"user":               "CDS username sent with each request",
		"session-token":      "Session token (managed by 'cdstail login')",
		"skip-version-check": "Disable automatic version update checks (true/false)",
		"log-level":          "Logging level (debug/info/warn/error, default: info)",
		"telemetry":          "Enable error telemetry and crash reporting (true/false, default: true)",
		"copy-format":        "Format used when copying a raw log (text/html, default: text)",
		"transport":          "How step logs are fetched (poll/websocket, default: poll)",
		"poll-interval":      "Delay between step log polls (e.g., 2s)",
	}
	return descriptions[key]
}

// ValidateValue checks a user supplied value for key
func ValidateValue(key, value string) error {
	switch key {
	case "copy-format":
		if value != CopyFormatText && value != CopyFormatHTML {
			return fmt.Errorf("copy-format must be %q or %q", CopyFormatText, CopyFormatHTML)
		}
	case "transport":
		if value != TransportPoll && value != TransportWebsocket {
			return fmt.Errorf("transport must be %q or %q", TransportPoll, TransportWebsocket)
		}
	case "poll-interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid poll-interval: %w", err)
		}
		if d < 500*time.Millisecond {
			return fmt.Errorf("poll-interval must be at least 500ms")
		}
	case "log-level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("log-level must be one of debug, info, warn, error")
		}
	case "skip-version-check", "telemetry":
		if value != "true" && value != "false" {
			return fmt.Errorf("%s must be true or false", key)
		}
	}
	return nil
}

// GetUserFacingKeys returns the list of keys users should interact with
func GetUserFacingKeys() []string {
	return []string{
		"api-url",
		"logstream-url",
		"user",
		"copy-format",
		"transport",
		"poll-interval",
		"skip-version-check",
		"log-level",
		"telemetry",
	}
}

// Load reads the configuration from ~/.cdstail/config.yaml
func Load() (*Config, error) {
	configPath := getConfigPath()
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Create config file if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := ensureConfigDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := viper.WriteConfig(); err != nil {
			return nil, fmt.Errorf("failed to create config file: %w", err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return fromViper(viper.GetViper()), nil
}

func fromViper(v *viper.Viper) *Config {
	env := GetEnvOverrides()

	config := &Config{
		APIURL:           firstNonEmpty(env.APIURL, v.GetString("api-url")),
		LogStreamURL:     firstNonEmpty(env.LogStreamURL, v.GetString("logstream-url")),
		User:             firstNonEmpty(env.User, v.GetString("user")),
		SessionToken:     firstNonEmpty(env.SessionToken, v.GetString("session-token")),
		SkipVersionCheck: v.GetBool("skip-version-check"),
		LogLevel:         v.GetString("log-level"),
		CopyFormat:       v.GetString("copy-format"),
		Transport:        v.GetString("transport"),
		PollInterval:     v.GetDuration("poll-interval"),
	}

	if v.IsSet("telemetry") {
		telemetryEnabled := v.GetBool("telemetry")
		config.TelemetryEnabled = &telemetryEnabled
	}

	return config
}

// IsTelemetryEnabled returns whether telemetry is enabled.
// Returns true by default if not explicitly set (opt-out model).
func (c *Config) IsTelemetryEnabled() bool {
	if envVal := os.Getenv("CDSTAIL_TELEMETRY_DISABLED"); envVal != "" {
		return envVal != "true" && envVal != "1"
	}

	if c.TelemetryEnabled != nil {
		return *c.TelemetryEnabled
	}

	return true
}

// Save writes the current configuration to disk
func Save(config *Config) error {
	viper.Set("api-url", config.APIURL)
	viper.Set("logstream-url", config.LogStreamURL)
	viper.Set("user", config.User)
	viper.Set("session-token", config.SessionToken)
	viper.Set("skip-version-check", config.SkipVersionCheck)
	viper.Set("log-level", config.LogLevel)
	viper.Set("copy-format", config.CopyFormat)
	viper.Set("transport", config.Transport)
	if config.PollInterval > 0 {
		viper.Set("poll-interval", config.PollInterval.String())
	}

	if config.TelemetryEnabled != nil {
		viper.Set("telemetry", *config.TelemetryEnabled)
	}

	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// getConfigPath returns the full path to the config file
func getConfigPath() string {
	if path := os.Getenv("CDSTAIL_CONFIG_PATH"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", DefaultConfigDir, DefaultConfigFile)
	}

	return filepath.Join(homeDir, DefaultConfigDir, DefaultConfigFile)
}

// Context key for storing config
type contextKey string

const configContextKey contextKey = "config"

// GetConfigFromContext retrieves the config from the command context
func GetConfigFromContext(cmd *cobra.Command) (*Config, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, fmt.Errorf("no context available")
	}

	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("config not found in context")
	}

	return cfg, nil
}

// GetContextKey returns the context key used for storing config
func GetContextKey() interface{} {
	return configContextKey
}

// RequireAPIURL returns the API URL or an error telling the user how to set it
func (c *Config) RequireAPIURL() (string, error) {
	if c.APIURL == "" {
		return "", fmt.Errorf("no CDS API URL configured. Run 'cdstail config set api-url <url>' or set CDS_API_URL")
	}
	return strings.TrimRight(c.APIURL, "/"), nil
}

// GetCopyFormat returns the configured copy format, defaulting to text
func (c *Config) GetCopyFormat() string {
	if c.CopyFormat == CopyFormatHTML {
		return CopyFormatHTML
	}
	return CopyFormatText
}

// GetTransport returns the configured transport, defaulting to polling
func (c *Config) GetTransport() string {
	if c.Transport == TransportWebsocket {
		return TransportWebsocket
	}
	return TransportPoll
}

// GetPollInterval returns the step log poll interval
func (c *Config) GetPollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}

// ensureConfigDir ensures the config directory exists
func ensureConfigDir() error {
	configPath := getConfigPath()
	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755) //nolint:gosec // Config directory needs standard permissions
}

// GetLogLevel returns the configured log level, Info if unset or invalid
func (c *Config) GetLogLevel() slog.Level {
	return logrium.ParseLevel(c.LogLevel)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
