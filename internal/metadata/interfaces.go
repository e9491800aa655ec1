package metadata

import (
	"context"

	"github.com/thatonemovie/thatonemovie/internal/metadata/tmdb"
)

// TMDBClient defines the catalog operations the service needs.
type TMDBClient interface {
	Name() string
	IsConfigured() bool
	Test(ctx context.Context) error
	SearchMovies(ctx context.Context, query string) ([]tmdb.Movie, error)
	GetMovie(ctx context.Context, id int) (*tmdb.Movie, error)
	GetRecommendations(ctx context.Context, id int) ([]tmdb.Movie, error)
	Popular(ctx context.Context) ([]tmdb.Movie, error)
	Trending(ctx context.Context, window tmdb.TimeWindow) ([]tmdb.Movie, error)
	Genres(ctx context.Context) ([]tmdb.Genre, error)
	DiscoverByGenre(ctx context.Context, genreID int) ([]tmdb.Movie, error)
	ImageURL(path string, size string) string
}

// HealthService is the interface for central health tracking.
type HealthService interface {
	RegisterItemStr(category, id, name string)
	SetErrorStr(category, id, message string)
	ClearStatusStr(category, id string)
}

var _ TMDBClient = (*tmdb.Client)(nil)
