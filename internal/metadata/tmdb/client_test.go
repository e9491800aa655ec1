package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatonemovie/thatonemovie/internal/config"
)

func newTestClient(server *httptest.Server) *Client {
	cfg := config.TMDBConfig{
		APIKey:        "test-api-key",
		BaseURL:       server.URL,
		ImageBaseURL:  "https://image.tmdb.org/t/p",
		Timeout:       5,
		RetryAttempts: 3,
	}
	c := NewClient(cfg, zerolog.Nop())
	c.retryDelay = 0
	return c
}

func strPtr(s string) *string { return &s }

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestClient_Name(t *testing.T) {
	client := NewClient(config.TMDBConfig{}, zerolog.Nop())
	if client.Name() != "tmdb" {
		t.Errorf("Name() = %q, want %q", client.Name(), "tmdb")
	}
}

func TestClient_IsConfigured(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		want   bool
	}{
		{"with key", "abc123", true},
		{"without key", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(config.TMDBConfig{APIKey: tt.apiKey}, zerolog.Nop())
			if got := client.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_SearchMovies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "Matrix", r.URL.Query().Get("query"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("api_key"))

		writeJSON(t, w, ListResponse{
			Page: 1,
			Results: []MovieResult{
				{ID: 604, Title: "The Matrix Reloaded", ReleaseDate: "2003-05-15"},
				{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30", PosterPath: strPtr("/matrix.jpg")},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	movies, err := client.SearchMovies(context.Background(), "Matrix")
	require.NoError(t, err)
	require.Len(t, movies, 2)

	// TMDB order is kept when ranking is disabled.
	assert.Equal(t, 604, movies[0].ID)
	assert.Equal(t, 2003, movies[0].Year)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/matrix.jpg", movies[1].PosterURL)
	assert.Equal(t, "/matrix.jpg", movies[1].PosterPath)
}

func TestClient_SearchMovies_EmptyQuery(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	movies, err := newTestClient(server).SearchMovies(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, movies)
	assert.Zero(t, calls.Load())
}

func TestClient_SearchMovies_Ranked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, ListResponse{Results: []MovieResult{
			{ID: 1, Title: "Obscure", Popularity: 1, VoteAverage: 5, VoteCount: 10},
			{ID: 2, Title: "Famous", Popularity: 90, VoteAverage: 8, VoteCount: 20000},
		}})
	}))
	defer server.Close()

	client := newTestClient(server)
	client.config.SearchOrdering = true

	movies, err := client.SearchMovies(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, 2, movies[0].ID)
}

func TestClient_GetMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/27205", r.URL.Path)
		assert.Equal(t, "credits,similar", r.URL.Query().Get("append_to_response"))

		writeJSON(t, w, MovieDetails{
			ID:          27205,
			Title:       "Inception",
			ReleaseDate: "2010-07-15",
			Runtime:     148,
			Genres:      []Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}},
			Credits: &CreditsResponse{
				Cast: []CastMember{{ID: 6193, Name: "Leonardo DiCaprio", Character: "Cobb", ProfilePath: strPtr("/leo.jpg")}},
				Crew: []CrewMember{{ID: 525, Name: "Christopher Nolan", Job: "Director"}},
			},
			Similar: &ListResponse{Results: []MovieResult{{ID: 157336, Title: "Interstellar"}}},
		})
	}))
	defer server.Close()

	movie, err := newTestClient(server).GetMovie(context.Background(), 27205)
	require.NoError(t, err)

	assert.Equal(t, "Inception", movie.Title)
	assert.Equal(t, 2010, movie.Year)
	assert.Equal(t, 148, movie.Runtime)
	assert.Equal(t, []int{28, 878}, movie.GenreIDs)
	require.NotNil(t, movie.Credits)
	assert.Equal(t, "Cobb", movie.Credits.Cast[0].Character)
	assert.Equal(t, "https://image.tmdb.org/t/p/w185/leo.jpg", movie.Credits.Cast[0].PhotoURL)
	assert.Equal(t, "Director", movie.Credits.Crew[0].Job)
	require.Len(t, movie.Similar, 1)
	assert.Equal(t, "Interstellar", movie.Similar[0].Title)
}

func TestClient_GetMovie_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).GetMovie(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, errors.Is(err, ErrMovieNotFound))
}

func TestClient_ListEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		wantPath string
		call     func(*Client) ([]Movie, error)
	}{
		{"popular", "/movie/popular", func(c *Client) ([]Movie, error) { return c.Popular(context.Background()) }},
		{"trending week", "/trending/movie/week", func(c *Client) ([]Movie, error) {
			return c.Trending(context.Background(), TimeWindowWeek)
		}},
		{"trending day", "/trending/movie/day", func(c *Client) ([]Movie, error) {
			return c.Trending(context.Background(), TimeWindowDay)
		}},
		{"trending unknown window", "/trending/movie/week", func(c *Client) ([]Movie, error) {
			return c.Trending(context.Background(), TimeWindow("month"))
		}},
		{"recommendations", "/movie/550/recommendations", func(c *Client) ([]Movie, error) {
			return c.GetRecommendations(context.Background(), 550)
		}},
		{"discover", "/discover/movie", func(c *Client) ([]Movie, error) {
			return c.DiscoverByGenre(context.Background(), 18)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)
				if tt.wantPath == "/discover/movie" {
					assert.Equal(t, "18", r.URL.Query().Get("with_genres"))
				}
				writeJSON(t, w, ListResponse{Results: []MovieResult{{ID: 1, Title: "One"}}})
			}))
			defer server.Close()

			movies, err := tt.call(newTestClient(server))
			require.NoError(t, err)
			require.Len(t, movies, 1)
			assert.Equal(t, "One", movies[0].Title)
		})
	}
}

func TestClient_Genres(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genre/movie/list", r.URL.Path)
		writeJSON(t, w, GenresResponse{Genres: []Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}})
	}))
	defer server.Close()

	genres, err := newTestClient(server).Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}, genres)
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, ListResponse{Results: []MovieResult{{ID: 7, Title: "Seven"}}})
	}))
	defer server.Close()

	movies, err := newTestClient(server).Popular(context.Background())
	require.NoError(t, err)
	assert.Len(t, movies, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server).Popular(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryOtherErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server).Popular(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPIError)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MissingAPIKey(t *testing.T) {
	client := NewClient(config.TMDBConfig{BaseURL: "http://unused"}, zerolog.Nop())
	_, err := client.Popular(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestClient_ImageURL(t *testing.T) {
	client := NewClient(config.TMDBConfig{ImageBaseURL: "https://image.tmdb.org/t/p"}, zerolog.Nop())

	tests := []struct {
		name string
		path string
		size string
		want string
	}{
		{"empty path", "", "w500", ""},
		{"default size", "/abc.jpg", "", "https://image.tmdb.org/t/p/original/abc.jpg"},
		{"explicit size", "/abc.jpg", "w342", "https://image.tmdb.org/t/p/w342/abc.jpg"},
		{"absolute passthrough", "https://cdn.example.com/p.jpg", "w500", "https://cdn.example.com/p.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.ImageURL(tt.path, tt.size))
		})
	}
}

func TestParseTimeWindow(t *testing.T) {
	assert.Equal(t, TimeWindowDay, ParseTimeWindow("day"))
	assert.Equal(t, TimeWindowWeek, ParseTimeWindow("week"))
	assert.Equal(t, TimeWindowWeek, ParseTimeWindow(""))
}
