package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cdstail/cdstail/internal/api"
)

const (
	defaultPollInterval = 2 * time.Second
	// maxConsecutiveFailures ends the worker after this many failed polls in a row
	maxConsecutiveFailures = 5
)

// PollingOptions configures a polling worker
type PollingOptions struct {
	// NewClient builds the API client from the worker config. Defaults to an
	// HTTP client using the config's identity.
	NewClient func(cfg Config) (api.Client, error)
}

type polling struct {
	base
	newClient func(cfg Config) (api.Client, error)
}

var _ Worker = (*polling)(nil)

// NewPolling creates a worker that polls the step log endpoint
func NewPolling(opts PollingOptions) Worker {
	newClient := opts.NewClient
	if newClient == nil {
		newClient = httpClient
	}
	return &polling{base: newBase(), newClient: newClient}
}

func httpClient(cfg Config) (api.Client, error) {
	return api.NewClient(api.Options{
		BaseURL:     cfg.APIURL,
		Credentials: configCredentials{user: cfg.User, session: cfg.Session},
	})
}

// Start implements Worker
func (p *polling) Start(ctx context.Context, cfg Config) error {
	if err := p.markStarted(); err != nil {
		return err
	}

	client, err := p.newClient(cfg)
	if err != nil {
		p.finish(err)
		return fmt.Errorf("failed to create step log client: %w", err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	slog.Debug("Starting step log polling", "step", cfg.Ref().String(), "interval", cfg.PollInterval)

	go func() {
		p.finish(p.run(ctx, client, cfg))
	}()
	return nil
}

func (p *polling) run(ctx context.Context, client api.Client, cfg Config) error {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var last string
	failures := 0

	for {
		if err := p.wait(ctx); err != nil {
			return err
		}

		done, err := p.fetchOnce(ctx, client, cfg, &last)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			failures++
			if failures >= maxConsecutiveFailures {
				return fmt.Errorf("step log polling failed %d times: %w", failures, err)
			}
			slog.Warn("Step log poll failed", "error", err, "failures", failures)
		default:
			failures = 0
		}
		if done {
			slog.Debug("Step log polling finished", "step", cfg.Ref().String())
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchOnce emits the current payload unless it equals the previous one and
// returns whether the step is finished
func (p *polling) fetchOnce(ctx context.Context, client api.Client, cfg Config, last *string) (bool, error) {
	body, err := client.GetStepLog(ctx, cfg.Ref())
	if err != nil {
		return false, fmt.Errorf("failed to fetch step log: %w", err)
	}

	msg := string(body)
	if msg != *last {
		if err := p.send(ctx, msg); err != nil {
			return false, err
		}
		*last = msg
	}

	return payloadDone(body, cfg.Once), nil
}

// configCredentials adapts a worker config's identity to api.Credentials
type configCredentials struct {
	user    string
	session string
}

func (c configCredentials) User() string { return c.user }

func (c configCredentials) SessionToken() (string, error) {
	if c.session == "" {
		return "", fmt.Errorf("no session token in worker config")
	}
	return c.session, nil
}
