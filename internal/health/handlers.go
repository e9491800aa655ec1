package health

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// TestResult is the outcome of an on-demand health test.
type TestResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handlers provides HTTP handlers for health endpoints.
type Handlers struct {
	health *Service
	checks map[HealthCategory]map[string]CheckFunc
}

// NewHandlers creates new health handlers.
func NewHandlers(health *Service) *Handlers {
	return &Handlers{
		health: health,
		checks: make(map[HealthCategory]map[string]CheckFunc),
	}
}

// RegisterCheck attaches an on-demand probe to an item.
func (h *Handlers) RegisterCheck(category HealthCategory, id string, fn CheckFunc) {
	if h.checks[category] == nil {
		h.checks[category] = make(map[string]CheckFunc)
	}
	h.checks[category][id] = fn
}

// RegisterRoutes registers health routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAll)
	g.GET("/summary", h.GetSummary)
	g.GET("/:category", h.GetByCategory)
	g.POST("/:category/:id/test", h.TestItem)
}

// GetAll returns all health items grouped by category.
// GET /api/v1/system/health
func (h *Handlers) GetAll(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.GetAll())
}

// GetSummary returns summary counts.
// GET /api/v1/system/health/summary
func (h *Handlers) GetSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.GetSummary())
}

// GetByCategory returns health items for a specific category.
// GET /api/v1/system/health/:category
func (h *Handlers) GetByCategory(c echo.Context) error {
	category := HealthCategory(c.Param("category"))
	if !IsValidCategory(category) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid health category")
	}
	return c.JSON(http.StatusOK, h.health.GetByCategory(category))
}

// TestItem runs the registered probe for an item and records the result.
// POST /api/v1/system/health/:category/:id/test
func (h *Handlers) TestItem(c echo.Context) error {
	category := HealthCategory(c.Param("category"))
	id := c.Param("id")

	if h.health.GetItem(category, id) == nil {
		return echo.NewHTTPError(http.StatusNotFound, "health item not found")
	}

	fn := h.checks[category][id]
	if fn == nil {
		return c.JSON(http.StatusOK, TestResult{ID: id, Message: "no test available"})
	}

	if err := fn(c.Request().Context()); err != nil {
		h.health.SetError(category, id, err.Error())
		return c.JSON(http.StatusOK, TestResult{ID: id, Message: err.Error()})
	}

	h.health.ClearStatus(category, id)
	return c.JSON(http.StatusOK, TestResult{ID: id, Success: true, Message: "Connection verified"})
}
