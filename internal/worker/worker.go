// Package worker fetches the log of one step in the background and delivers
// each payload, the raw JSON build state, on a channel.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cdstail/cdstail/internal/api"
)

// ErrAlreadyStarted is returned by a second Start
var ErrAlreadyStarted = errors.New("worker already started")

// Config is everything a worker needs to reach one step log. The identity
// fields are forwarded as-is to the backend.
type Config struct {
	User         string
	Session      string
	APIURL       string
	LogStreamURL string

	Key          string
	WorkflowName string
	Number       int64
	NodeRunID    int64
	RunJobID     int64
	StepOrder    int

	// PollInterval applies to the polling worker
	PollInterval time.Duration
	// Once stops the worker after the first payload, with or without a log
	Once bool
}

// Ref returns the step log reference described by the config
func (c Config) Ref() api.StepLogRef {
	return api.StepLogRef{
		ProjectKey:   c.Key,
		WorkflowName: c.WorkflowName,
		Number:       c.Number,
		NodeRunID:    c.NodeRunID,
		RunJobID:     c.RunJobID,
		StepOrder:    c.StepOrder,
	}
}

// Worker streams step log payloads
type Worker interface {
	// Start begins fetching in the background. It may be called once.
	Start(ctx context.Context, cfg Config) error
	// Stop pauses the worker; Response stays valid
	Stop()
	// Resume continues a paused worker
	Resume()
	// Response delivers payloads in order. It is closed when the worker ends.
	Response() <-chan string
	// Err is the reason the worker ended, nil for a normal finish or cancellation
	Err() error
}

// Factory creates a worker for a transport
type Factory func() Worker

// Transports
const (
	TransportPoll      = "poll"
	TransportWebsocket = "websocket"
)

// NewFactory returns the factory for a transport name. Unknown names poll.
func NewFactory(transport string) Factory {
	if transport == TransportWebsocket {
		return func() Worker { return NewStreaming(StreamingOptions{}) }
	}
	return func() Worker { return NewPolling(PollingOptions{}) }
}

// payloadDone reports whether a payload ends the stream: the build status is
// known and no longer running, or once is set.
func payloadDone(payload []byte, once bool) bool {
	var state struct {
		Status   string           `json:"status"`
		StepLogs *json.RawMessage `json:"step_logs"`
	}
	if err := json.Unmarshal(payload, &state); err != nil {
		return false
	}
	if once {
		return true
	}
	return state.Status != "" && api.IsTerminalStatus(state.Status)
}

// gate blocks a worker loop while paused
type gate struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func (g *gate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.resume = make(chan struct{})
	}
}

func (g *gate) unpause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.resume)
	}
}

func (g *gate) isPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// wait returns once the gate is open or ctx is done
func (g *gate) wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	ch := g.resume
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// base carries the lifecycle shared by both workers
type base struct {
	gate

	mu      sync.Mutex
	started bool
	err     error
	out     chan string
}

func newBase() base {
	return base{out: make(chan string, 16)}
}

func (b *base) markStarted() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrAlreadyStarted
	}
	b.started = true
	return nil
}

func (b *base) Stop()   { b.pause() }
func (b *base) Resume() { b.unpause() }

func (b *base) Response() <-chan string { return b.out }

func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// finish records the final error and closes the response channel
func (b *base) finish(err error) {
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
	close(b.out)
}

func (b *base) send(ctx context.Context, msg string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.out <- msg:
		return nil
	}
}
