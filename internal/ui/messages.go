package ui

import "os"

// SignalCancelMsg asks the running view to stop following the step log and
// quit. Signal is the SIGINT or SIGTERM that was received.
type SignalCancelMsg struct {
	Signal os.Signal
}
