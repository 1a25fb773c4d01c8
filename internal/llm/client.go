// Package llm is the client for the upstream language-model endpoint.
//
// The endpoint takes a single POST with a prompt and an optional continuation
// token and answers with free text plus a new token. Every failure mode
// (transport, timeout, non-2xx, malformed body) is reported as *ServiceError
// so callers have exactly one thing to check.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single call when the context has no deadline.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody is how much of a failed response body is kept for logs.
	maxErrorBody = 2048

	// maxResponseBody caps successful response decoding.
	maxResponseBody = 4 << 20
)

// Client sends one prompt and returns one completion.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Request is a single model call.
type Request struct {
	Prompt            string
	ContinuationToken string
}

// Completion is the model's answer.
type Completion struct {
	Output            string
	ContinuationToken string
}

// Config configures HTTPClient.
type Config struct {
	Endpoint string
	Token    string
	Model    string
	Timeout  time.Duration
}

// HTTPClient implements Client over a JSON POST endpoint.
type HTTPClient struct {
	config Config
	http   *http.Client
	logger zerolog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// WithLogger sets the logger used for upstream failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *HTTPClient) { h.logger = logger.With().Str("component", "llm").Logger() }
}

// NewHTTPClient validates cfg and builds a client.
func NewHTTPClient(cfg Config, opts ...Option) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("llm: endpoint cannot be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm: model cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &HTTPClient{
		config: cfg,
		http:   &http.Client{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// wireRequest is the POST body.
type wireRequest struct {
	Model              string `json:"model"`
	Input              string `json:"input"`
	PreviousResponseID string `json:"previous_response_id,omitempty"`
}

// wireResponse accepts the field spellings seen across compatible servers.
type wireResponse struct {
	Output     json.RawMessage `json:"output"`
	OutputText string          `json:"output_text"`
	SessionID  string          `json:"session_id"`
	ResponseID string          `json:"response_id"`
	ID         string          `json:"id"`
}

// Complete performs a single attempt; there is no retry.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, &ServiceError{Kind: KindRequest, Err: fmt.Errorf("prompt cannot be empty")}
	}

	callCtx, cancel := prepareContext(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(wireRequest{
		Model:              c.config.Model,
		Input:              req.Prompt,
		PreviousResponseID: req.ContinuationToken,
	})
	if err != nil {
		return nil, &ServiceError{Kind: KindRequest, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Kind: KindRequest, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		kind := KindTransport
		if callCtx.Err() != nil {
			kind = KindTimeout
		}
		c.logger.Error().Err(err).Str("kind", string(kind)).Msg("model call failed")
		return nil, &ServiceError{Kind: kind, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(snippet)).
			Msg("model endpoint returned non-2xx")
		return nil, &ServiceError{Kind: KindStatus, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &ServiceError{Kind: KindTransport, Err: fmt.Errorf("read body: %w", err)}
	}

	completion, err := decodeCompletion(raw)
	if err != nil {
		c.logger.Error().Err(err).Msg("model endpoint returned malformed body")
		return nil, &ServiceError{Kind: KindMalformed, Err: err}
	}

	c.logger.Debug().
		Dur("latency", time.Since(start)).
		Int("output_len", len(completion.Output)).
		Msg("model call completed")
	return completion, nil
}

func decodeCompletion(raw []byte) (*Completion, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	output := wire.OutputText
	if output == "" && len(wire.Output) > 0 {
		var s string
		if err := json.Unmarshal(wire.Output, &s); err != nil {
			return nil, fmt.Errorf("decode output: expected string: %w", err)
		}
		output = s
	}

	token := firstNonEmpty(wire.SessionID, wire.ResponseID, wire.ID)
	if output == "" && token == "" {
		return nil, fmt.Errorf("response has neither output nor session id")
	}

	return &Completion{Output: output, ContinuationToken: token}, nil
}

func prepareContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
