// Package ollama is the HTTP client for the local model-serving endpoint,
// with a hard per-call timeout and cooperative cancellation. Upstream failure
// detail never reaches the caller's error message; it travels in the wrapped
// cause for server-side logging only.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nixxxo/local-llm/internal/domain"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 10 * time.Second

	// genericUpstreamMessage is the only upstream failure text a client
	// ever sees.
	genericUpstreamMessage = "Failed to process your request"
	timeoutMessage         = "The model took too long to respond"
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the model server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the hard per-call deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client issues guarded calls to the model server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// New creates a model server client.
func New(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the configured per-call deadline.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Chat sends one chat request. The cancellation deadline is armed at call
// start and released as soon as the call completes, and it propagates into
// the transport so a timed-out connection is actually torn down. Failures
// map onto the gateway error taxonomy: deadline hits become timeout errors,
// everything else becomes a genericized upstream error.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, domain.ErrInternal("failed to encode upstream request").WithCause(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrInternal("failed to build upstream request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrTimeout(timeoutMessage).WithCause(err)
		}
		return nil, domain.ErrUpstream(genericUpstreamMessage).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrTimeout(timeoutMessage).WithCause(err)
		}
		return nil, domain.ErrUpstream(genericUpstreamMessage).WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		// The raw upstream error body stays in the cause; the client
		// only ever sees the generic message.
		cause := fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(respBody))
		return nil, domain.ErrUpstream(genericUpstreamMessage).WithCause(cause)
	}

	var result ChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.ErrUpstream(genericUpstreamMessage).WithCause(err)
	}

	return &result, nil
}
