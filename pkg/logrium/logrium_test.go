package logrium

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupForTesting(t *testing.T) {
	var buf bytes.Buffer

	SetupForTesting(t, &buf, slog.LevelDebug)

	slog.Debug("debug message", "step", "compile")
	slog.Info("info message", "order", 1)
	slog.Warn("warn message")

	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, "step=compile")
	assert.Contains(t, output, "order=1")
	assert.Contains(t, output, "level=WARN")
}

func TestSetupForTesting_LogLevel(t *testing.T) {
	var buf bytes.Buffer

	SetupForTesting(t, &buf, slog.LevelInfo)

	slog.Debug("debug message")
	slog.Info("info message")

	assert.NotContains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "info message")
}

func TestSetupForTesting_Cleanup(t *testing.T) {
	originalLogger := slog.Default()

	t.Run("with_custom_logger", func(t *testing.T) {
		var buf bytes.Buffer
		SetupForTesting(t, &buf, slog.LevelDebug)

		assert.NotEqual(t, originalLogger, slog.Default())
	})

	assert.Equal(t, originalLogger, slog.Default())
}

func TestParseLevel(t *testing.T) {
	tcs := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"trace":   slog.LevelInfo,
	}

	for in, want := range tcs {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestOpenOutput(t *testing.T) {
	t.Run("stderr", func(t *testing.T) {
		w, path, err := openOutput(false, t.TempDir(), time.Now())
		require.NoError(t, err)
		assert.Empty(t, path)
		assert.Equal(t, os.Stderr, w)
	})

	t.Run("debug file", func(t *testing.T) {
		dir := t.TempDir()
		now := time.Date(2026, 3, 1, 12, 30, 5, 0, time.UTC)

		w, path, err := openOutput(true, dir, now)
		require.NoError(t, err)
		t.Cleanup(func() { _ = w.(*os.File).Close() })

		assert.Equal(t, filepath.Join(dir, "cdstail-debug-2026-03-01T12-30-05.log"), path)

		_, err = w.Write([]byte("hello\n"))
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "hello"))
	})
}
