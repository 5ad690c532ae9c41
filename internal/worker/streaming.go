package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// reconnectDelay is the delay between reconnection attempts
	reconnectDelay = 2 * time.Second
	// maxReconnectAttempts is the maximum number of consecutive reconnection attempts
	maxReconnectAttempts = 5
	// pingInterval is how often ping frames are sent to keep the connection alive
	pingInterval = 10 * time.Second
	// pongTimeout is how long to wait for a pong before the connection is considered dead
	pongTimeout = 5 * time.Second
	// handshakeTimeout bounds the websocket handshake
	handshakeTimeout = 5 * time.Second
)

// errStreamDone ends a session once a terminal payload was delivered
var errStreamDone = errors.New("step log stream complete")

// StreamingOptions configures a streaming worker
type StreamingOptions struct {
	ReconnectDelay time.Duration
	MaxReconnects  int
}

type streaming struct {
	base
	reconnectDelay time.Duration
	maxReconnects  int
}

var _ Worker = (*streaming)(nil)

// NewStreaming creates a worker reading step log payloads from a websocket
func NewStreaming(opts StreamingOptions) Worker {
	s := &streaming{
		base:           newBase(),
		reconnectDelay: opts.ReconnectDelay,
		maxReconnects:  opts.MaxReconnects,
	}
	if s.reconnectDelay <= 0 {
		s.reconnectDelay = reconnectDelay
	}
	if s.maxReconnects <= 0 {
		s.maxReconnects = maxReconnectAttempts
	}
	return s
}

// Start implements Worker
func (s *streaming) Start(ctx context.Context, cfg Config) error {
	if err := s.markStarted(); err != nil {
		return err
	}

	wsURL, err := streamURL(cfg)
	if err != nil {
		s.finish(err)
		return err
	}

	go func() {
		s.finish(s.run(ctx, wsURL, cfg))
	}()
	return nil
}

func (s *streaming) run(ctx context.Context, wsURL string, cfg Config) error {
	reconnectAttempts := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.streamOnce(ctx, wsURL, cfg)
		if err == nil || errors.Is(err, errStreamDone) {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		reconnectAttempts++
		if reconnectAttempts > s.maxReconnects {
			return fmt.Errorf("max reconnection attempts (%d) exceeded: %w", s.maxReconnects, err)
		}

		slog.Warn("Step log websocket lost, reconnecting",
			"attempt", reconnectAttempts,
			"maxAttempts", s.maxReconnects,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

// streamOnce handles a single websocket session
func (s *streaming) streamOnce(ctx context.Context, wsURL string, cfg Config) error {
	conn, err := connect(ctx, wsURL, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close() //nolint:errcheck // Best effort close

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
	})

	pingDone := make(chan struct{})
	go pingLoop(ctx, conn, pingDone)
	defer close(pingDone)

	// ReadMessage does not observe ctx; closing the connection unblocks it
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Step log websocket closed normally")
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if s.isPaused() {
			slog.Debug("Dropping step log frame while paused", "size", len(message))
			continue
		}

		if err := s.send(ctx, string(message)); err != nil {
			return err
		}
		if payloadDone(message, cfg.Once) {
			return errStreamDone
		}
	}
}

// streamURL builds the step log websocket URL
func streamURL(cfg Config) (string, error) {
	if cfg.LogStreamURL == "" {
		return "", fmt.Errorf("no log stream URL configured")
	}
	wsURL, err := url.Parse(cfg.LogStreamURL)
	if err != nil {
		return "", fmt.Errorf("invalid logstream URL: %w", err)
	}
	switch wsURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	}
	wsURL.Path = strings.TrimRight(wsURL.Path, "/") + "/step-logs"

	query := wsURL.Query()
	query.Set("projectKey", cfg.Key)
	query.Set("workflowName", cfg.WorkflowName)
	query.Set("number", strconv.FormatInt(cfg.Number, 10))
	query.Set("nodeRunId", strconv.FormatInt(cfg.NodeRunID, 10))
	query.Set("runJobId", strconv.FormatInt(cfg.RunJobID, 10))
	query.Set("stepOrder", strconv.Itoa(cfg.StepOrder))
	wsURL.RawQuery = query.Encode()

	return wsURL.String(), nil
}

func connect(ctx context.Context, wsURL string, cfg Config) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Session-Token", cfg.Session)
	header.Set("User", cfg.User)

	slog.Debug("Connecting to step log websocket", "step", cfg.Ref().String())

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	slog.Info("Connected to step log websocket", "step", cfg.Ref().String())

	return conn, nil
}

// pingLoop sends periodic ping messages to keep the connection alive
func pingLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pongTimeout)); err != nil {
				slog.Debug("Failed to send ping", "error", err)
				return
			}
		}
	}
}
