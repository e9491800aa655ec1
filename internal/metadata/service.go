package metadata

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/metadata/tmdb"
)

var (
	ErrNotConfigured = errors.New("movie catalog is not configured")
	ErrNotFound      = errors.New("movie not found")
)

const (
	healthCategory = "metadata"
	discoverGenres = 3
)

// HomeFeed is the landing page payload.
type HomeFeed struct {
	Popular  []tmdb.Movie `json:"popular"`
	Trending []tmdb.Movie `json:"trending"`
}

// GenreRow is a genre with a page of its movies.
type GenreRow struct {
	Genre  tmdb.Genre   `json:"genre"`
	Movies []tmdb.Movie `json:"movies"`
}

// DiscoverFeed is the discover page payload.
type DiscoverFeed struct {
	Trending []tmdb.Movie `json:"trending"`
	Popular  []tmdb.Movie `json:"popular"`
	Genres   []GenreRow   `json:"genres"`
}

// MovieWithRecommendations pairs a movie with TMDB's recommendations for it.
type MovieWithRecommendations struct {
	Movie           *tmdb.Movie  `json:"movie"`
	Recommendations []tmdb.Movie `json:"recommendations"`
}

// Service is the catalog facade used by HTTP handlers and the recommendation pipeline.
// List operations never fail: a fetch error is logged and yields an empty list.
type Service struct {
	tmdb          TMDBClient
	logger        zerolog.Logger
	healthService HealthService
}

// NewService creates a catalog service backed by the real TMDB client.
func NewService(cfg config.MetadataConfig, logger zerolog.Logger) *Service {
	return NewServiceWithClient(tmdb.NewClient(cfg.TMDB, logger), logger)
}

// NewServiceWithClient creates a catalog service with a custom client (for testing).
func NewServiceWithClient(client TMDBClient, logger zerolog.Logger) *Service {
	return &Service{
		tmdb:   client,
		logger: logger.With().Str("component", "metadata").Logger(),
	}
}

// Client returns the underlying catalog client.
func (s *Service) Client() TMDBClient {
	return s.tmdb
}

// SetHealthService sets the central health service.
func (s *Service) SetHealthService(hs HealthService) {
	s.healthService = hs
	if hs != nil {
		hs.RegisterItemStr(healthCategory, s.tmdb.Name(), "TMDB")
	}
}

// IsConfigured reports whether the catalog has credentials.
func (s *Service) IsConfigured() bool {
	return s.tmdb.IsConfigured()
}

// CheckHealth probes the catalog API and records the result.
func (s *Service) CheckHealth(ctx context.Context) error {
	if !s.tmdb.IsConfigured() {
		s.reportHealth(ErrNotConfigured)
		return ErrNotConfigured
	}
	err := s.tmdb.Test(ctx)
	s.reportHealth(err)
	return err
}

func (s *Service) reportHealth(err error) {
	if s.healthService == nil {
		return
	}
	if err != nil {
		s.healthService.SetErrorStr(healthCategory, s.tmdb.Name(), err.Error())
		return
	}
	s.healthService.ClearStatusStr(healthCategory, s.tmdb.Name())
}

// Popular returns popular movies.
func (s *Service) Popular(ctx context.Context) []tmdb.Movie {
	movies, err := s.tmdb.Popular(ctx)
	return s.orEmpty(ctx, movies, err, "popular")
}

// Trending returns trending movies for the window.
func (s *Service) Trending(ctx context.Context, window tmdb.TimeWindow) []tmdb.Movie {
	movies, err := s.tmdb.Trending(ctx, window)
	return s.orEmpty(ctx, movies, err, "trending")
}

// Search returns movies matching the query.
func (s *Service) Search(ctx context.Context, query string) []tmdb.Movie {
	movies, err := s.tmdb.SearchMovies(ctx, query)
	return s.orEmpty(ctx, movies, err, "search")
}

// ByGenre returns movies in a genre.
func (s *Service) ByGenre(ctx context.Context, genreID int) []tmdb.Movie {
	movies, err := s.tmdb.DiscoverByGenre(ctx, genreID)
	return s.orEmpty(ctx, movies, err, "discover")
}

// Genres returns the genre list.
func (s *Service) Genres(ctx context.Context) []tmdb.Genre {
	genres, err := s.tmdb.Genres(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("operation", "genres").Msg("Catalog fetch failed")
		markFetchFailed(ctx)
		return []tmdb.Genre{}
	}
	return genres
}

// Recommendations returns TMDB's recommendations for a movie.
func (s *Service) Recommendations(ctx context.Context, id int) []tmdb.Movie {
	movies, err := s.tmdb.GetRecommendations(ctx, id)
	return s.orEmpty(ctx, movies, err, "recommendations")
}

// GetMovie returns movie details, or ErrNotFound for unknown ids.
func (s *Service) GetMovie(ctx context.Context, id int) (*tmdb.Movie, error) {
	movie, err := s.tmdb.GetMovie(ctx, id)
	if err != nil {
		if errors.Is(err, tmdb.ErrMovieNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Warn().Err(err).Int("id", id).Msg("Failed to get movie details")
		return nil, err
	}
	return movie, nil
}

// MovieWithRecommendations returns a movie and its recommendations. Any
// failure yields a nil movie with no recommendations.
func (s *Service) MovieWithRecommendations(ctx context.Context, id int) MovieWithRecommendations {
	empty := MovieWithRecommendations{Recommendations: []tmdb.Movie{}}

	movie, err := s.tmdb.GetMovie(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int("id", id).Msg("Failed to get movie for recommendations")
		markFetchFailed(ctx)
		return empty
	}
	recs, err := s.tmdb.GetRecommendations(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int("id", id).Msg("Failed to get movie recommendations")
		markFetchFailed(ctx)
		return empty
	}
	if recs == nil {
		recs = []tmdb.Movie{}
	}
	return MovieWithRecommendations{Movie: movie, Recommendations: recs}
}

// Home fetches popular and trending movies concurrently.
func (s *Service) Home(ctx context.Context) HomeFeed {
	var feed HomeFeed
	p := pool.New()
	p.Go(func() { feed.Popular = s.Popular(ctx) })
	p.Go(func() { feed.Trending = s.Trending(ctx, tmdb.TimeWindowWeek) })
	p.Wait()
	return feed
}

// Discover fetches trending, popular and the first few genres with their movies.
func (s *Service) Discover(ctx context.Context) DiscoverFeed {
	var feed DiscoverFeed
	var genres []tmdb.Genre

	p := pool.New()
	p.Go(func() { feed.Trending = s.Trending(ctx, tmdb.TimeWindowWeek) })
	p.Go(func() { feed.Popular = s.Popular(ctx) })
	p.Go(func() { genres = s.Genres(ctx) })
	p.Wait()

	if len(genres) > discoverGenres {
		genres = genres[:discoverGenres]
	}

	feed.Genres = make([]GenreRow, len(genres))
	rows := pool.New()
	for i, g := range genres {
		rows.Go(func() {
			feed.Genres[i] = GenreRow{Genre: g, Movies: s.ByGenre(ctx, g.ID)}
		})
	}
	rows.Wait()

	return feed
}

func (s *Service) orEmpty(ctx context.Context, movies []tmdb.Movie, err error, op string) []tmdb.Movie {
	if err != nil {
		s.logger.Warn().Err(err).Str("operation", op).Msg("Catalog fetch failed")
		markFetchFailed(ctx)
		return []tmdb.Movie{}
	}
	if movies == nil {
		return []tmdb.Movie{}
	}
	return movies
}

// Page slices a list for "show more" paging. Out-of-range offsets yield
// an empty list; a non-positive limit means no limit.
func Page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
