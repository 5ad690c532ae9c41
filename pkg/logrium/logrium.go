// Package logrium configures the global slog logger of the CLI.
package logrium

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-isatty"
)

// Setup configures the global slog logger based on display options and log level.
// It respects shell redirection (2>).
//
// Logging behavior:
//   - isInteractive=true + stderr is terminal: Logs to timestamped file in temp dir
//   - isInteractive=true + stderr redirected: Logs to stderr
//   - isInteractive=false: Logs to stderr
//
// Returns the log file path, or "" when logging to stderr.
//
//	logFile, err := logrium.Setup(true, slog.LevelInfo)
//	if err != nil {
//	    return err
//	}
//	if logFile != "" {
//	    fmt.Printf("Debug logs: %s\n", logFile)
//	}
func Setup(isInteractive bool, level slog.Level) (string, error) {
	useFile := isInteractive && isatty.IsTerminal(os.Stderr.Fd())

	output, logFilePath, err := openOutput(useFile, os.TempDir(), time.Now())
	if err != nil {
		return "", err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	})))

	return logFilePath, nil
}

// openOutput picks stderr or a debug file in dir. A running TUI owns the
// terminal, so logs must not reach it.
func openOutput(useFile bool, dir string, now time.Time) (io.Writer, string, error) {
	if !useFile {
		return os.Stderr, "", nil
	}

	logFilePath := filepath.Join(dir, fmt.Sprintf("cdstail-debug-%s.log", now.Format("2006-01-02T15-04-05")))
	logFile, err := os.OpenFile(logFilePath, //nolint:gosec // Log file in temp directory
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, "", err
	}
	return logFile, logFilePath, nil
}

// ParseLevel maps a config value to a slog level. Empty or unknown values
// give Info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Disable discards all log output. Used when --verbose is not set.
func Disable() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	})))
}

// SetupForTesting writes logs to w until the test completes, then restores
// the previous logger.
//
//	var buf bytes.Buffer
//	logrium.SetupForTesting(t, &buf, slog.LevelDebug)
//	myFunction()
//	assert.Contains(t, buf.String(), "expected log message")
func SetupForTesting(t *testing.T, w io.Writer, level slog.Level) {
	originalLogger := slog.Default()

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})))

	t.Cleanup(func() {
		slog.SetDefault(originalLogger)
	})
}
