package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"required,min=3,max=30"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Handlers provides HTTP handlers for sign-up, sign-in and session lookup.
type Handlers struct {
	service *Service
	gotrue  *GoTrueClient
}

// NewHandlers creates new auth handlers.
func NewHandlers(service *Service, gotrue *GoTrueClient) *Handlers {
	return &Handlers{service: service, gotrue: gotrue}
}

// RegisterRoutes registers the auth routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/signup", h.SignUp)
	g.POST("/signin", h.SignIn)

	protected := g.Group("")
	protected.Use(h.service.RequireUser())
	protected.POST("/signout", h.SignOut)
	protected.GET("/user", h.GetUser)
}

// POST /api/v1/auth/signup
func (h *Handlers) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.gotrue.SignUp(c.Request().Context(), req.Email, req.Password, req.Username)
	if err != nil {
		return backendError(err)
	}

	return c.JSON(http.StatusCreated, resp)
}

// POST /api/v1/auth/signin
func (h *Handlers) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.gotrue.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		return backendError(err)
	}

	return c.JSON(http.StatusOK, resp)
}

// POST /api/v1/auth/signout
func (h *Handlers) SignOut(c echo.Context) error {
	session := SessionFrom(c)
	if err := h.gotrue.SignOut(c.Request().Context(), session.Token); err != nil {
		return backendError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /api/v1/auth/user
// Without an auth server the verified token claims are the whole answer.
func (h *Handlers) GetUser(c echo.Context) error {
	session := SessionFrom(c)

	if !h.gotrue.IsConfigured() {
		return c.JSON(http.StatusOK, &User{ID: session.UserID, Email: session.Email})
	}

	user, err := h.gotrue.GetUser(c.Request().Context(), session.Token)
	if err != nil {
		return backendError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func backendError(err error) error {
	if errors.Is(err, ErrBackendNotConfigured) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "auth backend is not configured")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return echo.NewHTTPError(apiErr.StatusCode, apiErr.Message)
	}
	return echo.NewHTTPError(http.StatusBadGateway, "auth backend request failed")
}
