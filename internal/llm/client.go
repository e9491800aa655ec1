// Package llm talks to an OpenRouter-style chat completion endpoint.
package llm

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

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/metrics"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 512
)

var (
	ErrAPIKeyMissing = errors.New("completion API key is not configured")
	ErrCircuitOpen   = errors.New("completion endpoint unavailable (circuit open)")
	ErrEmptyResponse = errors.New("completion response had no choices")
)

// Completer produces raw completion text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StateChangeFunc is called when the circuit breaker changes state.
type StateChangeFunc func(from, to gobreaker.State)

// Client wraps the chat completion API behind a circuit breaker.
type Client struct {
	cfg        config.AIConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[string]
	onState    StateChangeFunc
	logger     zerolog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithStateChangeHook registers a callback for breaker transitions.
func WithStateChangeHook(fn StateChangeFunc) Option {
	return func(c *Client) {
		c.onState = fn
	}
}

// NewClient constructs a completion client.
func NewClient(cfg config.AIConfig, logger zerolog.Logger, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := defaultHTTPTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "llm").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := time.Duration(cfg.BreakerCooldown) * time.Second
	if cooldown <= 0 {
		cooldown = time.Minute
	}

	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "completion",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			if c.onState != nil {
				c.onState(from, to)
			}
		},
	})
	metrics.BreakerState.WithLabelValues("completion").Set(float64(gobreaker.StateClosed))

	return c
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Complete sends the prompt as a single user message and returns the first
// choice's content. Any returned error is a transport-level failure.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.IsConfigured() {
		metrics.CompletionRequests.WithLabelValues("rejected").Inc()
		return "", ErrAPIKeyMissing
	}

	start := time.Now()
	content, err := c.breaker.Execute(func() (string, error) {
		return c.send(ctx, prompt)
	})
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CompletionRequests.WithLabelValues("rejected").Inc()
			return "", fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		metrics.CompletionRequests.WithLabelValues("error").Inc()
		c.logger.Error().Err(err).Msg("Completion request failed")
		return "", err
	}

	metrics.CompletionRequests.WithLabelValues("success").Inc()
	c.logger.Debug().
		Int("chars", len(content)).
		Dur("duration", time.Since(start)).
		Msg("Completion received")
	return content, nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		Text         string      `json:"text"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) send(ctx context.Context, prompt string) (string, error) {
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("completion request: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("completion request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("completion request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("completion request: decode body: %w", err)
	}
	if completion.Error != nil && completion.Error.Message != "" {
		return "", fmt.Errorf("completion request: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	choice := completion.Choices[0]
	content := choice.Message.Content
	if content == "" {
		content = choice.Text
	}
	if content == "" {
		// Blank content is left to the parser.
		c.logger.Warn().Str("finishReason", choice.FinishReason).Msg("completion returned empty content")
	}
	return content, nil
}
