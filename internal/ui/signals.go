package ui

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultShutdownTimeout is how long the step view gets to stop its log
// worker after the first signal
const defaultShutdownTimeout = 100 * time.Millisecond

// exitCodeInterrupted is the shell convention for SIGINT
const exitCodeInterrupted = 130

type msgSender interface {
	Send(msg tea.Msg)
}

// SetupSignalHandling turns SIGINT and SIGTERM into a SignalCancelMsg so the
// step view can stop its worker before quitting. A second signal, or a view
// that is still running after shutdownTimeout, exits the process.
// NOTE: call before p.Run(), since it alters the program config. Close the
// returned channel once p.Run() returned.
func SetupSignalHandling(p *tea.Program, shutdownTimeout time.Duration) chan<- struct{} {
	// bubbletea would otherwise quit on SIGINT without telling the model
	tea.WithoutSignalHandler()(p)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	return watchSignals(p, sigCh, shutdownTimeout, forceExit)
}

func watchSignals(p msgSender, sigCh chan os.Signal, shutdownTimeout time.Duration, exit func(reason string)) chan<- struct{} {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	doneCh := make(chan struct{})

	go func() {
		defer signal.Stop(sigCh)

		var sig os.Signal
		select {
		case sig = <-sigCh:
		case <-doneCh:
			return
		}
		p.Send(SignalCancelMsg{Signal: sig})

		timer := time.NewTimer(shutdownTimeout)
		defer timer.Stop()

		select {
		case <-sigCh:
			exit("Interrupted again, not waiting for the step log to stop")
		case <-timer.C:
			exit(fmt.Sprintf("Step log did not stop within %s", shutdownTimeout))
		case <-doneCh:
		}
	}()
	return doneCh
}

func forceExit(reason string) {
	fmt.Fprintf(os.Stderr, "\n%s, exiting\n", reason)
	os.Exit(exitCodeInterrupted)
}
