// Package supabase implements the user data store on the hosted backend's
// PostgREST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/userdata"
)

// uniqueViolation is the Postgres error code PostgREST forwards on duplicate keys.
const uniqueViolation = "23505"

var ErrNotConfigured = errors.New("supabase URL is not configured")

// APIError is a non-2xx PostgREST answer.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest error %s (status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("postgrest error (status %d): %s", e.StatusCode, e.Message)
}

// Client issues PostgREST requests on behalf of the caller in ctx.
type Client struct {
	httpClient *http.Client
	restURL    string
	anonKey    string
	logger     zerolog.Logger
}

// NewClient creates a client for <supabase_url>/rest/v1.
func NewClient(cfg config.BackendConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.SupabaseURL == "" {
		return nil, ErrNotConfigured
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		restURL:    strings.TrimRight(cfg.SupabaseURL, "/") + "/rest/v1",
		anonKey:    cfg.AnonKey,
		logger:     logger.With().Str("component", "supabase").Logger(),
	}, nil
}

// do sends a request to /rest/v1/<table>. body is JSON-encoded when non-nil and
// the response is decoded into result when non-nil.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, body, result interface{}) error {
	endpoint := c.restURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	c.authorize(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("table", table).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("table", table).
			Str("code", apiErr.Code).
			Str("message", apiErr.Message).
			Msg("PostgREST error")
		return apiErr
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// authorize forwards the caller's token so row-level security applies,
// falling back to the anon key.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	token := userdata.AccessTokenFrom(ctx)
	if token == "" {
		token = c.anonKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func eq(v interface{}) string {
	return fmt.Sprintf("eq.%v", v)
}

func isUniqueViolation(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == uniqueViolation || apiErr.StatusCode == http.StatusConflict
	}
	return false
}
