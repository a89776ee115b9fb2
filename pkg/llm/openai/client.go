package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"disputedesk-hq/guardrail/pkg/llm"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, for example "https://api.openai.com/v1".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is the model name sent with every request.
	Model string

	// Timeout bounds one request. Zero means no client-side timeout.
	Timeout time.Duration

	// Temperature is sent when non-zero.
	Temperature float64
}

// Client calls a chat completions endpoint. It is safe for concurrent use.
type Client struct {
	cfg    Config
	url    string
	client *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// New creates a client for cfg.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		url: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: cfg.Timeout,
		},
		logger: slog.Default().With("component", "llm.openai"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke implements llm.Invoker.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	body, err := json.Marshal(toRequest(c.cfg, messages))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.logger.DebugContext(ctx, "sending chat completion", "model", c.cfg.Model, "messages", len(messages))

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ParseError{Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if err := statusError(resp, raw); err != nil {
		return nil, err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ParseError{RawResponse: truncate(raw), Cause: err}
	}
	return fromResponse(&out, c.cfg.Model), nil
}

func statusError(resp *http.Response, raw []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := truncate(raw)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Message: msg}
	case http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), Message: msg}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return max(time.Until(t), 0)
	}
	return 0
}
