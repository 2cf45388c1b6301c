// Package backend is the HTTP client for the AI Studio backend.
//
// Every collaborator (auth, chat, predictive tools, retail) is reached
// through one configured base URL. Requests carry the raw session token in
// the Authorization header and a fresh X-Request-ID.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aistudio/internal/logging"

	"github.com/google/uuid"
)

// Client talks to the backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for baseURL. timeout bounds each request unless the
// caller's context is shorter.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// postJSON encodes in as the request body and decodes the reply into out.
func (c *Client) postJSON(ctx context.Context, path, token string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, token, bytes.NewReader(body), "application/json", out)
}

// do sends one request. out may be nil when the body is ignored.
func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string, out any) error {
	requestID := uuid.NewString()
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)
	defer timer.StopWithThreshold(5 * time.Second)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	logging.APIDebug("%s %s request_id=%s", method, path, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		logging.APIWarn("%s %s failed: %v", method, path, err)
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: reading %s body: %v", ErrTransport, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.APIWarn("%s %s returned %d", method, path, resp.StatusCode)
		return &StatusError{Code: resp.StatusCode, Message: messageFrom(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProtocol, path, err)
	}
	return nil
}

// messageFrom pulls a human message out of an error body, if any.
func messageFrom(data []byte) string {
	var env struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(data, &env) != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	var s string
	if json.Unmarshal(env.Error, &s) == nil {
		return s
	}
	return ""
}

// envelope is the failure signalling shared by the tool endpoints. The
// error field is a bool on most endpoints and a string on car recognition.
type envelope struct {
	Error   json.RawMessage `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Success *bool           `json:"success,omitempty"`
}

// failure returns the user message when the envelope reports an error flag.
func (e envelope) failure(fallback string) (string, bool) {
	raw := strings.TrimSpace(string(e.Error))
	switch raw {
	case "", "null", "false", "0", `""`:
		return "", false
	}
	if e.Message != "" {
		return e.Message, true
	}
	var s string
	if json.Unmarshal(e.Error, &s) == nil && s != "" {
		return s, true
	}
	return fallback, true
}

// check applies the error flag, then, when requireSuccess is set, the
// success flag.
func (e envelope) check(fallback string, requireSuccess bool) error {
	if msg, failed := e.failure(fallback); failed {
		return &APIError{Message: msg}
	}
	if requireSuccess && (e.Success == nil || !*e.Success) {
		msg := e.Message
		if msg == "" {
			msg = fallback
		}
		return &APIError{Message: msg}
	}
	return nil
}
