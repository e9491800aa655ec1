package auth

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

	"github.com/thatonemovie/thatonemovie/internal/config"
)

var (
	ErrBackendNotConfigured = errors.New("auth backend is not configured")
	ErrInvalidCredentials   = errors.New("invalid email or password")
)

// APIError is a non-2xx answer from the auth server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth server error (status %d): %s", e.StatusCode, e.Message)
}

// User is the account record returned by the auth server.
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	CreatedAt    string                 `json:"created_at,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// TokenResponse is a session grant. Sign-up with email confirmation enabled
// answers with the user only, so AccessToken may be empty.
type TokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// GoTrueClient proxies account operations to the backend's auth server.
type GoTrueClient struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	logger     zerolog.Logger
}

// NewGoTrueClient creates a client for <supabase_url>/auth/v1.
func NewGoTrueClient(cfg config.BackendConfig, logger zerolog.Logger) *GoTrueClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := ""
	if cfg.SupabaseURL != "" {
		baseURL = strings.TrimRight(cfg.SupabaseURL, "/") + "/auth/v1"
	}
	return &GoTrueClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		anonKey:    cfg.AnonKey,
		logger:     logger.With().Str("component", "gotrue").Logger(),
	}
}

// IsConfigured returns true if the backend URL is set.
func (g *GoTrueClient) IsConfigured() bool {
	return g.baseURL != ""
}

// SignUp registers an account; the username travels as user metadata so the
// backend's profile trigger can pick it up.
func (g *GoTrueClient) SignUp(ctx context.Context, email, password, username string) (*TokenResponse, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"username": username},
	}

	raw, err := g.do(ctx, http.MethodPost, "/signup", "", body)
	if err != nil {
		return nil, err
	}

	// With autoconfirm the grant is returned, otherwise just the user.
	var resp TokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.User == nil && resp.AccessToken == "" {
		var user User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		resp.User = &user
	}
	return &resp, nil
}

// SignIn exchanges email and password for a session grant.
func (g *GoTrueClient) SignIn(ctx context.Context, email, password string) (*TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}

	raw, err := g.do(ctx, http.MethodPost, "/token?grant_type=password", "", body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	var resp TokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// SignOut revokes the session behind accessToken.
func (g *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	_, err := g.do(ctx, http.MethodPost, "/logout", accessToken, nil)
	return err
}

// GetUser returns the account behind accessToken.
func (g *GoTrueClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	raw, err := g.do(ctx, http.MethodGet, "/user", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &user, nil
}

// Health checks the auth server's health endpoint.
func (g *GoTrueClient) Health(ctx context.Context) error {
	_, err := g.do(ctx, http.MethodGet, "/health", "", nil)
	return err
}

func (g *GoTrueClient) do(ctx context.Context, method, path, accessToken string, body interface{}) ([]byte, error) {
	if !g.IsConfigured() {
		return nil, ErrBackendNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.anonKey != "" {
		req.Header.Set("apikey", g.anonKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		g.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Str("message", apiErr.Message).Msg("Auth server error")
		return nil, apiErr
	}

	return raw, nil
}

// errorMessage pulls a readable message out of the several error shapes the
// auth server uses.
func errorMessage(raw []byte) string {
	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, s := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
