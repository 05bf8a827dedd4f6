// Package llm is the boundary to the hosted language models used for page
// transcription and problem authoring.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultMaxTokens      = 1800
)

// Request is a single-turn completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Usage reports token consumption of one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the text of the first choice plus accounting.
type Response struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

// Client completes prompts against a hosted model.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Model() string
}

// RetryableError indicates a transient failure: a 5xx status or a transport
// error (StatusCode 0).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	if e.StatusCode == 0 {
		return "retryable transport error: " + truncate(e.Message, 200)
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Option configures a client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	stats      *Stats
	log        *slog.Logger
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithStats records the latency of every successful call.
func WithStats(s *Stats) Option { return func(o *options) { o.stats = s } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

func buildOptions(defaultBase string, opts []Option) options {
	o := options{
		baseURL:    defaultBase,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		log:        slog.Default(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// New returns the client for provider. An empty model selects the provider's
// default.
func New(provider, apiKey, model string, opts ...Option) (Client, error) {
	switch provider {
	case "", ProviderOpenAI:
		return NewOpenAIClient(apiKey, model, opts...), nil
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, model, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// status classifies a non-200 response: 5xx is retryable, anything else is
// final.
func status(provider string, code int, body []byte) error {
	if code >= 500 {
		return &RetryableError{StatusCode: code, Message: string(body)}
	}
	return fmt.Errorf("%s api status %d: %s", provider, code, truncate(string(body), 500))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
