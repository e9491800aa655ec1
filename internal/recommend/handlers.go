package recommend

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for AI recommendations.
type Handlers struct {
	service *Service
}

// NewHandlers creates new recommendation handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the recommendation routes.
func (h *Handlers) RegisterRoutes(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.POST("/ai", h.Generate, mw...)
}

// Generate runs the pipeline for the posted preferences.
// POST /api/v1/recommendations/ai
func (h *Handlers) Generate(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, h.service.Recommend(c.Request().Context(), req))
}
