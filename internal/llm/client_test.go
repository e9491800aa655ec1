package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatonemovie/thatonemovie/internal/config"
)

func testConfig(url string) config.AIConfig {
	return config.AIConfig{
		APIKey:          "sk-test",
		BaseURL:         url,
		Model:           "openai/gpt-4o-mini",
		Referer:         "https://thatonemovie.example",
		Title:           "ThatOneMovie.ai",
		Temperature:     0.5,
		MaxTokens:       500,
		BreakerFailures: 2,
		BreakerCooldown: 60,
	}
}

func TestClient_CompleteSendsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "https://thatonemovie.example", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "ThatOneMovie.ai", r.Header.Get("X-Title"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openai/gpt-4o-mini", req.Model)
		assert.InDelta(t, 0.5, req.Temperature, 1e-9)
		assert.Equal(t, 500, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "Recommend 5 movies", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"[{\"title\":\"Heat\"}]"}},{"message":{"content":"ignored"}}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())
	content, err := client.Complete(context.Background(), "Recommend 5 movies")
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"Heat"}]`, content)
}

func TestClient_MissingAPIKey(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.APIKey = "  "
	client := NewClient(cfg, zerolog.Nop())

	assert.False(t, client.IsConfigured())
	_, err := client.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), zerolog.Nop()).Complete(context.Background(), "x")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), zerolog.Nop()).Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClient_EmptyContentIsNotAFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())
	for range 3 {
		content, err := client.Complete(context.Background(), "x")
		require.NoError(t, err)
		assert.Empty(t, content)
	}
	assert.Equal(t, gobreaker.StateClosed, client.State())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var mu sync.Mutex
	var transitions []gobreaker.State
	client := NewClient(testConfig(server.URL), zerolog.Nop(), WithStateChangeHook(func(from, to gobreaker.State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, to)
	}))

	for range 2 {
		_, err := client.Complete(context.Background(), "x")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())

	_, err := client.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}
