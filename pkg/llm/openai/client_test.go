package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"disputedesk-hq/guardrail/pkg/llm"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt-test", Timeout: 5 * time.Second})
}

// ============================================================================
// Invoke Tests
// ============================================================================

func TestInvoke(t *testing.T) {
	var got chatRequest
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"model":"gpt-test-0125","choices":[{"index":0,"message":{"role":"assistant","content":"I found 2 transactions."},"finish_reason":"stop"}],"usage":{"prompt_tokens":40,"completion_tokens":6,"total_tokens":46}}`)
	})

	resp, err := client.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a dispute assistant."},
		{Role: llm.RoleUser, Content: "Find my coffee charges"},
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if got.Model != "gpt-test" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("request = %+v", got)
	}
	if resp.Content != "I found 2 transactions." || resp.Model != "gpt-test-0125" || resp.TokensUsed != 46 {
		t.Errorf("response = %+v", resp)
	}
}

func TestInvoke_NoChoices(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":0}}`)
	})

	resp, err := client.Invoke(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Content != "" || resp.Model != "gpt-test" || resp.TokensUsed != 3 {
		t.Errorf("response = %+v", resp)
	}
}

func TestInvoke_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    map[string]string
		body      string
		check     func(error) bool
		retryable bool
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":"bad key"}`,
			check:  func(err error) bool { var e *AuthError; return errors.As(err, &e) },
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			header: map[string]string{"Retry-After": "7"},
			check: func(err error) bool {
				var e *RateLimitError
				return errors.As(err, &e) && e.RetryAfter == 7*time.Second
			},
			retryable: true,
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			check:  func(err error) bool { var e *StatusError; return errors.As(err, &e) && e.StatusCode == 400 },
		},
		{
			name:      "server error",
			status:    http.StatusBadGateway,
			check:     func(err error) bool { var e *StatusError; return errors.As(err, &e) && e.StatusCode == 502 },
			retryable: true,
		},
		{
			name:      "malformed body",
			status:    http.StatusOK,
			body:      `{"choices":`,
			check:     func(err error) bool { var e *ParseError; return errors.As(err, &e) },
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := client.Invoke(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
			if err == nil || !tt.check(err) {
				t.Fatalf("Invoke() error = %v (%T)", err, err)
			}
			if Retryable(err) != tt.retryable {
				t.Errorf("Retryable(%v) = %v, want %v", err, !tt.retryable, tt.retryable)
			}
		})
	}
}

func TestInvoke_Canceled(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Invoke(ctx, []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Invoke() error = %v, want context.Canceled", err)
	}
	if Retryable(err) {
		t.Error("cancellation should not be retried")
	}
}

// ============================================================================
// Helper Tests
// ============================================================================

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"soon", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.header); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
