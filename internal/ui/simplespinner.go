package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// SimpleSpinner is a spinner for commands that don't run a bubbletea program.
// It draws on stderr so stdout stays clean for piped output.
type SimpleSpinner struct {
	message string
	frames  []string
	out     io.Writer
	enabled bool
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
}

// NewSimpleSpinner creates a new simple spinner with a message
func NewSimpleSpinner(message string) *SimpleSpinner {
	return &SimpleSpinner{
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		out:     os.Stderr,
		enabled: isatty.IsTerminal(os.Stderr.Fd()),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// SetMessage changes the text next to the spinner
func (s *SimpleSpinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Start begins the spinner animation
func (s *SimpleSpinner) Start() {
	if !s.enabled {
		close(s.done)
		return
	}

	go func() {
		defer close(s.done)
		i := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				_, _ = fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
				s.mu.Lock()
				_, _ = fmt.Fprintf(s.out, "\r%s %s", s.frames[i%len(s.frames)], s.message)
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// Stop stops the spinner animation
func (s *SimpleSpinner) Stop() {
	close(s.stop)
	<-s.done
}
