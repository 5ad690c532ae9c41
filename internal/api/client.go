package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

// ErrUnauthorized is returned when CDS rejects the session
var ErrUnauthorized = errors.New("you must log in to use this functionality. Please run 'cdstail login'")

// Credentials supplies the identity headers of each request
type Credentials interface {
	User() string
	SessionToken() (string, error)
}

// Options configures a client
type Options struct {
	BaseURL     string
	Credentials Credentials
	HTTPClient  *http.Client
	Attempts    uint
}

type client struct {
	baseURL     string
	credentials Credentials
	httpClient  *http.Client
	attempts    uint
}

var _ Client = (*client)(nil)

// NewClient creates a new CDS API client
func NewClient(opts Options) (Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credentials are required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = 2
	}

	return &client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		credentials: opts.Credentials,
		httpClient:  httpClient,
		attempts:    attempts,
	}, nil
}

// request makes an authenticated GET to the CDS API with retry logic
func (c *client) request(ctx context.Context, method, path string) ([]byte, error) {
	var respBody []byte
	attempt := 0
	requestID := uuid.NewString()

	err := retry.Do(
		func() error {
			attempt++

			reqURL := c.baseURL + "/" + path

			slog.Debug("API request",
				"method", method,
				"path", path,
				"requestID", requestID,
				"attempt", attempt,
			)

			req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}

			token, err := c.credentials.SessionToken()
			if err != nil {
				return retry.Unrecoverable(err)
			}

			req.Header.Set("Accept", "application/json")
			req.Header.Set("Session-Token", token)
			req.Header.Set("User", c.credentials.User())
			req.Header.Set("Request-ID", requestID)
			req.Header.Set("X-Source", "cdstail")

			startTime := time.Now()
			resp, err := c.httpClient.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				slog.Warn("HTTP request failed",
					"error", err,
					"path", path,
					"duration", duration,
					"attempt", attempt,
				)
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close() //nolint:errcheck // Deferred close, error not actionable

			respBody, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			slog.Debug("API response",
				"statusCode", resp.StatusCode,
				"responseSize", len(respBody),
				"duration", duration,
				"path", path,
			)

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}

			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				slog.Warn("Authentication failed", "statusCode", resp.StatusCode, "path", path)
				return retry.Unrecoverable(ErrUnauthorized)
			}

			apiErr := fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			var errResp ErrorResponse
			if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
				apiErr = fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Message)
			}

			slog.Error("API error", "statusCode", resp.StatusCode, "path", path, "error", apiErr)

			// Gateway errors are worth another attempt
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return retry.Unrecoverable(apiErr)
		},
		retry.Attempts(c.attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}

	return respBody, nil
}

// GetNodeRun retrieves one node run with its stages, job runs and step statuses
func (c *client) GetNodeRun(ctx context.Context, projectKey, workflowName string, number, nodeRunID int64) (*NodeRun, error) {
	path := fmt.Sprintf("project/%s/workflows/%s/runs/%d/nodes/%d",
		url.PathEscape(projectKey), url.PathEscape(workflowName), number, nodeRunID)
	body, err := c.request(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var nodeRun NodeRun
	if err := json.Unmarshal(body, &nodeRun); err != nil {
		return nil, fmt.Errorf("failed to parse node run response: %w", err)
	}

	return &nodeRun, nil
}

// GetStepLog retrieves the raw build state of one step. The body is returned
// unparsed so callers can forward it as a worker message.
func (c *client) GetStepLog(ctx context.Context, ref StepLogRef) ([]byte, error) {
	return c.request(ctx, http.MethodGet, ref.Path())
}

// GetMe retrieves the user the session belongs to
func (c *client) GetMe(ctx context.Context) (*User, error) {
	body, err := c.request(ctx, http.MethodGet, "user/me")
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}

	return &user, nil
}
