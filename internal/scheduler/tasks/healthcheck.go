package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/thatonemovie/thatonemovie/internal/health"
	"github.com/thatonemovie/thatonemovie/internal/scheduler"
)

const HealthCheckTaskID = "dependency-health"

// Probe describes one external dependency to check.
type Probe struct {
	Category health.HealthCategory
	ID       string
	Name     string
	Check    func(ctx context.Context) error
}

// HealthCheckTask probes external dependencies and records the results.
type HealthCheckTask struct {
	probes []Probe
	health *health.Service
	logger zerolog.Logger
}

// NewHealthCheckTask creates a dependency health check task and registers
// each probe with the health service.
func NewHealthCheckTask(healthService *health.Service, probes []Probe, logger zerolog.Logger) *HealthCheckTask {
	for _, p := range probes {
		healthService.RegisterItem(p.Category, p.ID, p.Name)
	}
	return &HealthCheckTask{
		probes: probes,
		health: healthService,
		logger: logger.With().Str("task", HealthCheckTaskID).Logger(),
	}
}

// Run executes every probe. Probe failures are recorded, not returned.
func (t *HealthCheckTask) Run(ctx context.Context) error {
	failed := 0
	for _, p := range t.probes {
		if err := p.Check(ctx); err != nil {
			failed++
			t.health.SetError(p.Category, p.ID, err.Error())
			t.logger.Warn().Err(err).Str("probe", p.ID).Msg("Health check failed")
			continue
		}
		t.health.ClearStatus(p.Category, p.ID)
	}

	t.logger.Debug().
		Int("probes", len(t.probes)).
		Int("failed", failed).
		Msg("Health check completed")
	return nil
}

// RegisterHealthCheckTask registers the dependency health check with the scheduler.
func RegisterHealthCheckTask(
	sched *scheduler.Scheduler,
	cron string,
	healthService *health.Service,
	probes []Probe,
	logger zerolog.Logger,
) error {
	task := NewHealthCheckTask(healthService, probes, logger)

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          HealthCheckTaskID,
		Name:        "Dependency Health Check",
		Description: "Tests connectivity to the movie catalog and the user data backend",
		Cron:        cron,
		RunOnStart:  true,
		Timeout:     30 * time.Second,
		Func:        task.Run,
	})
}
