package userdata

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/thatonemovie/thatonemovie/internal/auth"
)

// SavedStatus answers whether a movie is on a list.
type SavedStatus struct {
	MovieID int  `json:"movieId"`
	Saved   bool `json:"saved"`
}

// Handlers provides HTTP handlers for the caller's profile, lists and ratings.
type Handlers struct {
	service *Service
}

// NewHandlers creates new user data handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the /me routes. requireUser must place an
// auth.Session on the request.
func (h *Handlers) RegisterRoutes(g *echo.Group, requireUser echo.MiddlewareFunc) {
	g.Use(requireUser)

	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)

	for _, kind := range []ListKind{ListFavorites, ListWatchlist} {
		list := g.Group("/" + string(kind))
		list.GET("", h.listSaved(kind))
		list.POST("", h.addSaved(kind))
		list.GET("/:movieId", h.savedStatus(kind))
		list.DELETE("/:movieId", h.removeSaved(kind))
	}

	g.GET("/ratings", h.ListRatings)
	g.GET("/ratings/:movieId", h.GetRating)
	g.PUT("/ratings/:movieId", h.RateMovie)
	g.DELETE("/ratings/:movieId", h.DeleteRating)
}

// GetProfile returns the caller's profile.
// GET /api/v1/me/profile
func (h *Handlers) GetProfile(c echo.Context) error {
	ctx, session := requestContext(c)

	profile, err := h.service.GetProfile(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch profile")
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile updates the caller's username and avatar.
// PUT /api/v1/me/profile
func (h *Handlers) UpdateProfile(c echo.Context) error {
	var input ProfileUpdate
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, session := requestContext(c)
	profile, err := h.service.UpdateProfile(ctx, session.UserID, input)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to update profile")
	}

	return c.JSON(http.StatusOK, profile)
}

// GET /api/v1/me/{favorites,watchlist}
func (h *Handlers) listSaved(kind ListKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, session := requestContext(c)
		return c.JSON(http.StatusOK, h.service.ListSaved(ctx, kind, session.UserID))
	}
}

// POST /api/v1/me/{favorites,watchlist}
func (h *Handlers) addSaved(kind ListKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var input SaveMovieInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if err := c.Validate(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		ctx, session := requestContext(c)
		saved, err := h.service.AddSaved(ctx, kind, session.UserID, input)
		if err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				return echo.NewHTTPError(http.StatusConflict, "movie is already on the list")
			}
			return echo.NewHTTPError(http.StatusBadGateway, "failed to save movie")
		}

		return c.JSON(http.StatusCreated, saved)
	}
}

// GET /api/v1/me/{favorites,watchlist}/:movieId
func (h *Handlers) savedStatus(kind ListKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		movieID, err := movieIDParam(c)
		if err != nil {
			return err
		}

		ctx, session := requestContext(c)
		return c.JSON(http.StatusOK, SavedStatus{
			MovieID: movieID,
			Saved:   h.service.IsSaved(ctx, kind, session.UserID, movieID),
		})
	}
}

// DELETE /api/v1/me/{favorites,watchlist}/:movieId
func (h *Handlers) removeSaved(kind ListKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		movieID, err := movieIDParam(c)
		if err != nil {
			return err
		}

		ctx, session := requestContext(c)
		if err := h.service.RemoveSaved(ctx, kind, session.UserID, movieID); err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, "failed to remove movie")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// ListRatings returns the caller's ratings.
// GET /api/v1/me/ratings
func (h *Handlers) ListRatings(c echo.Context) error {
	ctx, session := requestContext(c)
	return c.JSON(http.StatusOK, h.service.ListRatings(ctx, session.UserID))
}

// GetRating returns the caller's rating for a movie, or null when unrated.
// GET /api/v1/me/ratings/:movieId
func (h *Handlers) GetRating(c echo.Context) error {
	movieID, err := movieIDParam(c)
	if err != nil {
		return err
	}

	ctx, session := requestContext(c)
	return c.JSON(http.StatusOK, h.service.GetRating(ctx, session.UserID, movieID))
}

// RateMovie sets the caller's rating for a movie.
// PUT /api/v1/me/ratings/:movieId
func (h *Handlers) RateMovie(c echo.Context) error {
	movieID, err := movieIDParam(c)
	if err != nil {
		return err
	}

	var input RateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, session := requestContext(c)
	rating, err := h.service.RateMovie(ctx, session.UserID, movieID, input.Rating)
	if err != nil {
		if errors.Is(err, ErrInvalidRating) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to rate movie")
	}

	return c.JSON(http.StatusOK, rating)
}

// DeleteRating removes the caller's rating for a movie.
// DELETE /api/v1/me/ratings/:movieId
func (h *Handlers) DeleteRating(c echo.Context) error {
	movieID, err := movieIDParam(c)
	if err != nil {
		return err
	}

	ctx, session := requestContext(c)
	if err := h.service.DeleteRating(ctx, session.UserID, movieID); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to delete rating")
	}
	return c.NoContent(http.StatusNoContent)
}

func requestContext(c echo.Context) (context.Context, *auth.Session) {
	session := auth.SessionFrom(c)
	return WithAccessToken(c.Request().Context(), session.Token), session
}

func movieIDParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("movieId"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid movie ID")
	}
	return id, nil
}
