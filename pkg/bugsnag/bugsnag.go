// Package bugsnag reports errors and panics of the CLI. Reporting is off
// unless an API key was compiled in, and users can opt out with the
// telemetry config key or CDSTAIL_TELEMETRY_DISABLED.
package bugsnag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/bugsnag/bugsnag-go/v2"

	"github.com/cdstail/cdstail/internal/auth"
	"github.com/cdstail/cdstail/internal/version"
	"github.com/cdstail/cdstail/pkg/config"
)

// Build-time variables that can be set via ldflags
// Example: go build -ldflags "-X github.com/cdstail/cdstail/pkg/bugsnag.BugsnagAPIKey=your-key"
var (
	BugsnagAPIKey = ""

	DefaultReleaseStage = "prod"
)

var (
	initialized bool
	enabled     bool
)

// Initialize configures the Bugsnag client once. Without an API key or with
// telemetry disabled it only marks the package as initialised.
func Initialize() error {
	if initialized {
		return nil
	}

	cfg, _ := config.Load() // proceed with defaults if the config is unreadable
	if cfg != nil && !cfg.IsTelemetryEnabled() {
		initialized = true
		return nil
	}

	apiKey := BugsnagAPIKey
	if envKey := os.Getenv("BUGSNAG_API_KEY"); envKey != "" && apiKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		initialized = true
		return nil
	}

	releaseStage := os.Getenv("CDSTAIL_ENV")
	if releaseStage == "" {
		releaseStage = DefaultReleaseStage
	}

	bugsnag.Configure(bugsnag.Configuration{
		APIKey:              apiKey,
		ReleaseStage:        releaseStage,
		AppVersion:          version.Version,
		AppType:             "cli",
		ProjectPackages:     []string{"main", "github.com/cdstail/cdstail"},
		NotifyReleaseStages: []string{"prod", "dev"},
		PanicHandler:        func() {}, // panics are reported by NotifyOnPanic
		Synchronous:         false,
		AutoCaptureSessions: true,
	})

	addSystemMetadata()
	setUserContext(cfg)

	initialized = true
	enabled = true
	return nil
}

// IsEnabled returns whether reports are sent
func IsEnabled() bool {
	return enabled
}

func addSystemMetadata() {
	bugsnag.OnBeforeNotify(func(event *bugsnag.Event, _ *bugsnag.Configuration) error {
		event.MetaData.Add("system", "os_type", runtime.GOOS)
		event.MetaData.Add("system", "os_arch", runtime.GOARCH)
		event.MetaData.Add("system", "go_version", runtime.Version())
		return nil
	})
}

// setUserContext attributes reports to the CDS user. The session token is
// never sent; only its subject claim when it is a JWT.
func setUserContext(cfg *config.Config) {
	if cfg == nil {
		return
	}
	bugsnag.OnBeforeNotify(func(event *bugsnag.Event, _ *bugsnag.Configuration) error {
		if id := userID(cfg); id != "" {
			event.User = &bugsnag.User{Id: id}
		}
		if cfg.APIURL != "" {
			event.MetaData.Add("cds", "api_url", cfg.APIURL)
		}
		return nil
	})
}

func userID(cfg *config.Config) string {
	if cfg.User != "" {
		return cfg.User
	}
	if !auth.IsJWT(cfg.SessionToken) {
		return ""
	}
	claims, err := auth.ParseClaims(cfg.SessionToken)
	if err != nil {
		return ""
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}

// NotifyError reports a failure of the CLI
func NotifyError(ctx context.Context, err error) {
	NotifyWithMetadata(ctx, err, bugsnag.SeverityError, nil)
}

// NotifyWarning reports a recoverable problem
func NotifyWarning(ctx context.Context, err error) {
	NotifyWithMetadata(ctx, err, bugsnag.SeverityWarning, nil)
}

// NotifyWithMetadata reports err with severity and extra tabs of metadata.
// User cancellations are never reported.
func NotifyWithMetadata(ctx context.Context, err error, severity interface{}, metadata bugsnag.MetaData) {
	if !initialized {
		_ = Initialize()
	}

	if !enabled || err == nil || IsUserCancellation(err) {
		return
	}

	rawData := []interface{}{ctx, severity}
	if metadata != nil {
		rawData = append(rawData, metadata)
	}
	_ = bugsnag.Notify(err, rawData...)
}

// NotifyOnPanic reports a panic and re-panics. Use with defer in main.
func NotifyOnPanic(ctx context.Context) {
	if r := recover(); r != nil {
		var err error
		switch x := r.(type) {
		case string:
			err = fmt.Errorf("panic: %s", x)
		case error:
			err = fmt.Errorf("panic: %w", x)
		default:
			err = fmt.Errorf("panic: %v", r)
		}

		NotifyError(ctx, err)

		panic(r)
	}
}

// SetCommandContext tags reports with the command that was run
func SetCommandContext(command string, args []string) {
	if !initialized {
		_ = Initialize()
	}
	if !enabled {
		return
	}

	bugsnag.OnBeforeNotify(func(event *bugsnag.Event, _ *bugsnag.Configuration) error {
		event.MetaData.Add("command", "name", command)
		if len(args) > 0 {
			event.MetaData.Add("command", "args", strings.Join(args, " "))
		}
		return nil
	})
}

// IsUserCancellation identifies errors caused by the user stopping the CLI
func IsUserCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") ||
		strings.Contains(errStr, "cancelled by user")
}
