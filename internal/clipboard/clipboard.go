// Package clipboard writes text to the system clipboard, falling back to an
// OSC52 escape sequence when no clipboard utility is available (ssh sessions,
// containers).
package clipboard

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

// maxOSC52Bytes is the payload most terminals accept
const maxOSC52Bytes = 100 * 1024

// Copier is what the log view needs from a clipboard
type Copier interface {
	Copy(text string) error
}

// Service is the default Copier
type Service struct {
	writeAll func(string) error
	out      io.Writer
	getenv   func(string) string
}

var _ Copier = (*Service)(nil)

// Option configures a Service
type Option func(*Service)

// WithSystemClipboard replaces the system clipboard writer
func WithSystemClipboard(fn func(string) error) Option {
	return func(s *Service) { s.writeAll = fn }
}

// WithTerminal sets where OSC52 sequences are written. Defaults to stderr:
// stdout belongs to the TUI renderer or carries piped log output.
func WithTerminal(w io.Writer) Option {
	return func(s *Service) { s.out = w }
}

// WithGetenv replaces the environment lookup used for tmux/screen detection
func WithGetenv(fn func(string) string) Option {
	return func(s *Service) { s.getenv = fn }
}

// NewService creates a clipboard service
func NewService(opts ...Option) *Service {
	s := &Service{
		writeAll: clipboard.WriteAll,
		out:      os.Stderr,
		getenv:   os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Copy writes text to the clipboard
func (s *Service) Copy(text string) error {
	err := s.writeAll(text)
	if err == nil {
		return nil
	}
	slog.Debug("System clipboard unavailable, using OSC52", "error", err)

	// osc52 writes an empty sequence past the limit
	if len(text) > maxOSC52Bytes {
		return fmt.Errorf("log too large for OSC52 (%d bytes)", len(text))
	}

	seq := osc52.New(text).Limit(maxOSC52Bytes)

	term := strings.ToLower(s.getenv("TERM"))
	if s.getenv("TMUX") != "" || strings.HasPrefix(term, "tmux") {
		seq = seq.Tmux()
	} else if strings.HasPrefix(term, "screen") {
		seq = seq.Screen()
	}

	// One write so the sequence is not split by a concurrent frame
	if _, werr := io.WriteString(s.out, seq.String()); werr != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", werr)
	}
	return nil
}
