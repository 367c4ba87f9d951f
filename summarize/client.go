// Package summarize is the client for the external text-summarization
// endpoint. It posts {text, session_id} and reads back {summary}.
//
// The client is a pure collaborator: it never sees an edit history or a
// document, so callers can run it while edits stay blocked on nothing.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/liveedit/horosafe"
)

// ErrEmptyText is returned when there is nothing to summarize.
var ErrEmptyText = errors.New("summarize: empty text")

// ErrNotConfigured is returned by a client with no endpoint URL.
var ErrNotConfigured = errors.New("summarize: endpoint not configured")

// Request is the JSON body sent to the endpoint.
type Request struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

// Response is the JSON body expected back.
type Response struct {
	Summary string `json:"summary"`
}

// Client POSTs summarization requests with retry and exponential backoff.
type Client struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets the maximum number of retries. Default: 2.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the first retry delay; it doubles per attempt. Default: 1s.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithTimeout sets the per-request timeout. Default: 15s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client targeting url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		client:     &http.Client{Timeout: 15 * time.Second},
		maxRetries: 2,
		backoff:    time.Second,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Summarize returns the endpoint's summary of text. Transport errors and 5xx
// answers are retried; 4xx answers fail at once.
func (c *Client) Summarize(ctx context.Context, text, sessionID string) (string, error) {
	if c.url == "" {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	body, err := json.Marshal(Request{Text: text, SessionID: sessionID})
	if err != nil {
		return "", fmt.Errorf("summarize: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		summary, retry, err := c.post(ctx, body)
		if err == nil {
			return summary, nil
		}
		lastErr = err
		if !retry {
			return "", err
		}
		c.logger.Warn("summarize: request failed", "attempt", attempt+1, "session_id", sessionID, "error", err)
	}
	return "", fmt.Errorf("summarize: all retries exhausted: %w", lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (summary string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("summarize: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return "", true, fmt.Errorf("summarize: status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", false, fmt.Errorf("summarize: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return "", false, fmt.Errorf("summarize: read: %w", err)
	}
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return "", false, fmt.Errorf("summarize: decode: %w", err)
	}
	return out.Summary, false, nil
}
