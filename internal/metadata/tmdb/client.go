package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/metrics"
)

// ErrFetchFailed wraps every failure from this client so callers can
// treat "metadata fetch failed" as one condition.
var ErrFetchFailed = errors.New("metadata fetch failed")

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrMovieNotFound = errors.New("movie not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

const (
	defaultImageSize  = "original"
	defaultRetryDelay = 500 * time.Millisecond
)

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
	retryDelay time.Duration
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
		logger:     logger.With().Str("component", "tmdb").Logger(),
		retryDelay: defaultRetryDelay,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity to the TMDB API by making a configuration request.
func (c *Client) Test(ctx context.Context) error {
	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}
	return c.get(ctx, "test", "/configuration", nil, &result)
}

// SearchMovies searches for movies by title. An empty query yields no results.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]Movie, error) {
	if strings.TrimSpace(query) == "" {
		return []Movie{}, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")

	var response ListResponse
	if err := c.get(ctx, "search", "/search/movie", params, &response); err != nil {
		return nil, err
	}

	results := response.Results
	if c.config.SearchOrdering && len(results) > 1 {
		results = rankByRelevance(results, time.Now().Year())
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Bool("ranked", c.config.SearchOrdering).
		Msg("Movie search completed")

	return c.toMovies(results), nil
}

// GetMovie gets detailed movie info by TMDB ID, including credits and similar titles.
func (c *Client) GetMovie(ctx context.Context, id int) (*Movie, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,similar")

	var details MovieDetails
	if err := c.get(ctx, "details", fmt.Sprintf("/movie/%d", id), params, &details); err != nil {
		return nil, err
	}

	movie := c.detailsToMovie(details)

	c.logger.Debug().
		Int("id", id).
		Str("title", movie.Title).
		Msg("Got movie details")

	return &movie, nil
}

// GetRecommendations returns TMDB's recommendations for a movie.
func (c *Client) GetRecommendations(ctx context.Context, id int) ([]Movie, error) {
	return c.list(ctx, "recommendations", fmt.Sprintf("/movie/%d/recommendations", id), nil)
}

// Popular returns the current popular movies.
func (c *Client) Popular(ctx context.Context) ([]Movie, error) {
	return c.list(ctx, "popular", "/movie/popular", nil)
}

// Trending returns trending movies for the given window.
func (c *Client) Trending(ctx context.Context, window TimeWindow) ([]Movie, error) {
	if window != TimeWindowDay {
		window = TimeWindowWeek
	}
	return c.list(ctx, "trending", "/trending/movie/"+string(window), nil)
}

// DiscoverByGenre returns movies tagged with the genre.
func (c *Client) DiscoverByGenre(ctx context.Context, genreID int) ([]Movie, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.Itoa(genreID))
	return c.list(ctx, "discover", "/discover/movie", params)
}

// Genres returns the movie genre list.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var response GenresResponse
	if err := c.get(ctx, "genres", "/genre/movie/list", nil, &response); err != nil {
		return nil, err
	}
	if response.Genres == nil {
		return []Genre{}, nil
	}
	return response.Genres, nil
}

// ImageURL returns a full image URL for a path and size ("w92" ... "w780", "original").
// Empty paths yield "" and absolute URLs are returned unchanged.
func (c *Client) ImageURL(path string, size string) string {
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		return path
	}
	if size == "" {
		size = defaultImageSize
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

func (c *Client) list(ctx context.Context, op, path string, params url.Values) ([]Movie, error) {
	var response ListResponse
	if err := c.get(ctx, op, path, params, &response); err != nil {
		return nil, err
	}
	return c.toMovies(response.Results), nil
}

// get performs a GET with the API key, retrying on 429, and records the outcome.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, result interface{}) error {
	err := c.doWithRetry(ctx, path, params, result)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.CatalogRequests.WithLabelValues(op, outcome).Inc()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return nil
}

func (c *Client) doWithRetry(ctx context.Context, path string, params url.Values, result interface{}) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	attempts := c.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	return retry.Do(
		func() error {
			return c.doRequest(ctx, c.config.BaseURL+path, params, result)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrRateLimited)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug().Uint("attempt", n+1).Str("path", path).Msg("TMDB rate limited, retrying")
		}),
	)
}

// doRequest performs a single HTTP GET and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_key", c.config.APIKey)
	reqURL := endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("url", endpoint).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrMovieNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) toMovies(results []MovieResult) []Movie {
	movies := make([]Movie, len(results))
	for i, r := range results {
		movies[i] = c.toMovie(r)
	}
	return movies
}

func (c *Client) toMovie(m MovieResult) Movie {
	movie := Movie{
		ID:            m.ID,
		Title:         m.Title,
		OriginalTitle: m.OriginalTitle,
		Overview:      m.Overview,
		ReleaseDate:   m.ReleaseDate,
		Year:          parseYear(m.ReleaseDate),
		VoteAverage:   m.VoteAverage,
		VoteCount:     m.VoteCount,
		Popularity:    m.Popularity,
		GenreIDs:      m.GenreIDs,
	}
	if m.PosterPath != nil {
		movie.PosterPath = *m.PosterPath
		movie.PosterURL = c.ImageURL(*m.PosterPath, "w500")
	}
	if m.BackdropPath != nil {
		movie.BackdropPath = *m.BackdropPath
		movie.BackdropURL = c.ImageURL(*m.BackdropPath, "w780")
	}
	return movie
}

func (c *Client) detailsToMovie(d MovieDetails) Movie {
	movie := Movie{
		ID:            d.ID,
		Title:         d.Title,
		OriginalTitle: d.OriginalTitle,
		Overview:      d.Overview,
		ReleaseDate:   d.ReleaseDate,
		Year:          parseYear(d.ReleaseDate),
		VoteAverage:   d.VoteAverage,
		VoteCount:     d.VoteCount,
		Popularity:    d.Popularity,
		Genres:        d.Genres,
		Runtime:       d.Runtime,
		Tagline:       d.Tagline,
		ImdbID:        d.ImdbID,
	}
	for _, g := range d.Genres {
		movie.GenreIDs = append(movie.GenreIDs, g.ID)
	}
	if d.PosterPath != nil {
		movie.PosterPath = *d.PosterPath
		movie.PosterURL = c.ImageURL(*d.PosterPath, "w500")
	}
	if d.BackdropPath != nil {
		movie.BackdropPath = *d.BackdropPath
		movie.BackdropURL = c.ImageURL(*d.BackdropPath, "w780")
	}

	if d.Credits != nil {
		credits := &Credits{
			Cast: make([]Person, 0, len(d.Credits.Cast)),
			Crew: make([]Person, 0, len(d.Credits.Crew)),
		}
		for _, member := range d.Credits.Cast {
			p := Person{ID: member.ID, Name: member.Name, Character: member.Character}
			if member.ProfilePath != nil {
				p.PhotoURL = c.ImageURL(*member.ProfilePath, "w185")
			}
			credits.Cast = append(credits.Cast, p)
		}
		for _, member := range d.Credits.Crew {
			p := Person{ID: member.ID, Name: member.Name, Job: member.Job}
			if member.ProfilePath != nil {
				p.PhotoURL = c.ImageURL(*member.ProfilePath, "w185")
			}
			credits.Crew = append(credits.Crew, p)
		}
		movie.Credits = credits
	}

	if d.Similar != nil {
		movie.Similar = c.toMovies(d.Similar.Results)
	}

	return movie
}

func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, _ := strconv.Atoi(date[:4])
	return year
}

// rankByRelevance orders results by popularity, weighted rating, recency
// and completeness, highest first. The sort is stable so ties keep TMDB order.
func rankByRelevance(results []MovieResult, currentYear int) []MovieResult {
	maxVoteCount := 0
	for _, m := range results {
		if m.VoteCount > maxVoteCount {
			maxVoteCount = m.VoteCount
		}
	}

	type scored struct {
		movie MovieResult
		score float64
	}
	ranked := make([]scored, len(results))
	for i, m := range results {
		ranked[i] = scored{movie: m, score: relevanceScore(m, maxVoteCount, currentYear)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]MovieResult, len(ranked))
	for i, r := range ranked {
		out[i] = r.movie
	}
	return out
}

func relevanceScore(movie MovieResult, maxVoteCount int, currentYear int) float64 {
	voteCountNormalized := 0.0
	if maxVoteCount > 0 {
		voteCountNormalized = float64(movie.VoteCount) / float64(maxVoteCount)
	}

	recency := 0.0
	if year := parseYear(movie.ReleaseDate); year > 0 {
		recency = math.Exp(-float64(currentYear-year) * 0.2)
	}

	completeness := 0.0
	if movie.PosterPath != nil {
		completeness += 0.05
	}
	if movie.Overview != "" {
		completeness += 0.03
	}
	if len(movie.GenreIDs) > 0 {
		completeness += 0.02
	}

	return (movie.Popularity * 0.3) +
		(movie.VoteAverage * voteCountNormalized * 0.4) +
		(recency * 0.2) +
		(completeness * 0.1)
}
