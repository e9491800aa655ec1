package scheduler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers exposes scheduled tasks over HTTP.
type Handlers struct {
	scheduler *Scheduler
}

// NewHandlers creates new scheduler handlers.
func NewHandlers(s *Scheduler) *Handlers {
	return &Handlers{scheduler: s}
}

// RegisterRoutes registers the task routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/run", h.Run)
}

// List returns all tasks.
// GET /api/v1/system/tasks
func (h *Handlers) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.ListTasks())
}

// Get returns one task.
// GET /api/v1/system/tasks/:id
func (h *Handlers) Get(c echo.Context) error {
	info, err := h.scheduler.GetTask(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, info)
}

// Run triggers a task immediately.
// POST /api/v1/system/tasks/:id/run
func (h *Handlers) Run(c echo.Context) error {
	if err := h.scheduler.RunNow(c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrTaskNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrTaskRunning):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}
