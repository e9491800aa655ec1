package metadata

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/thatonemovie/thatonemovie/internal/metadata/tmdb"
)

const catalogCacheControl = "public, max-age=3600"

// Handlers provides HTTP handlers for catalog browsing.
type Handlers struct {
	service *Service
}

// NewHandlers creates new catalog handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the catalog routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/popular", h.Popular)
	g.GET("/trending", h.Trending)
	g.GET("/search", h.Search)
	g.GET("/genres", h.Genres)
	g.GET("/genre/:id", h.ByGenre)
	g.GET("/home", h.Home)
	g.GET("/discover", h.Discover)
	g.GET("/:id", h.GetMovie)
	g.GET("/:id/recommendations", h.Recommendations)
}

// cachedJSON writes body and marks it publicly cacheable unless a catalog
// fetch behind it failed.
func cachedJSON(c echo.Context, fetch *fetchStatus, body interface{}) error {
	if !fetch.Failed() {
		c.Response().Header().Set("Cache-Control", catalogCacheControl)
	}
	return c.JSON(http.StatusOK, body)
}

// Popular returns popular movies.
// GET /api/v1/movies/popular?limit=&offset=
func (h *Handlers) Popular(c echo.Context) error {
	ctx, fetch := trackFetch(c.Request().Context())
	movies := h.service.Popular(ctx)
	return cachedJSON(c, fetch, paged(c, movies))
}

// Trending returns trending movies.
// GET /api/v1/movies/trending?window=day|week&limit=&offset=
func (h *Handlers) Trending(c echo.Context) error {
	window := tmdb.ParseTimeWindow(c.QueryParam("window"))
	ctx, fetch := trackFetch(c.Request().Context())
	movies := h.service.Trending(ctx, window)
	return cachedJSON(c, fetch, paged(c, movies))
}

// Search searches movies by title. An empty query returns an empty list.
// GET /api/v1/movies/search?query=
func (h *Handlers) Search(c echo.Context) error {
	ctx, fetch := trackFetch(c.Request().Context())
	movies := h.service.Search(ctx, c.QueryParam("query"))
	return cachedJSON(c, fetch, paged(c, movies))
}

// Genres returns the genre list.
// GET /api/v1/movies/genres
func (h *Handlers) Genres(c echo.Context) error {
	ctx, fetch := trackFetch(c.Request().Context())
	return cachedJSON(c, fetch, h.service.Genres(ctx))
}

// ByGenre returns movies in a genre.
// GET /api/v1/movies/genre/:id
func (h *Handlers) ByGenre(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, fetch := trackFetch(c.Request().Context())
	movies := h.service.ByGenre(ctx, id)
	return cachedJSON(c, fetch, paged(c, movies))
}

// Home returns popular and trending movies.
// GET /api/v1/movies/home
func (h *Handlers) Home(c echo.Context) error {
	ctx, fetch := trackFetch(c.Request().Context())
	return cachedJSON(c, fetch, h.service.Home(ctx))
}

// Discover returns trending, popular and per-genre rows.
// GET /api/v1/movies/discover
func (h *Handlers) Discover(c echo.Context) error {
	ctx, fetch := trackFetch(c.Request().Context())
	return cachedJSON(c, fetch, h.service.Discover(ctx))
}

// GetMovie returns movie details with credits and similar titles.
// GET /api/v1/movies/:id
func (h *Handlers) GetMovie(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	movie, err := h.service.GetMovie(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "movie not found")
		}
		if errors.Is(err, tmdb.ErrAPIKeyMissing) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "movie catalog is not configured")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch movie")
	}

	return cachedJSON(c, nil, movie)
}

// Recommendations returns a movie with TMDB's recommendations for it.
// GET /api/v1/movies/:id/recommendations
func (h *Handlers) Recommendations(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, fetch := trackFetch(c.Request().Context())
	return cachedJSON(c, fetch, h.service.MovieWithRecommendations(ctx, id))
}

func parseID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func paged(c echo.Context, movies []tmdb.Movie) []tmdb.Movie {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return Page(movies, limit, offset)
}
