//nolint:revive // Package name 'api' is intentionally generic for the HTTP API layer
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	apimw "github.com/thatonemovie/thatonemovie/internal/api/middleware"
	"github.com/thatonemovie/thatonemovie/internal/api/ratelimit"
	"github.com/thatonemovie/thatonemovie/internal/auth"
	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/health"
	"github.com/thatonemovie/thatonemovie/internal/llm"
	"github.com/thatonemovie/thatonemovie/internal/metadata"
	"github.com/thatonemovie/thatonemovie/internal/recommend"
	"github.com/thatonemovie/thatonemovie/internal/scheduler"
	"github.com/thatonemovie/thatonemovie/internal/scheduler/tasks"
	"github.com/thatonemovie/thatonemovie/internal/userdata"
	"github.com/thatonemovie/thatonemovie/internal/validation"
	"github.com/thatonemovie/thatonemovie/internal/websocket"
)

const (
	completionHealthID    = "completion"
	authHealthID          = "auth"
	rateLimitCleanupID    = "ratelimit-cleanup"
	rateLimitCleanupCron  = "*/10 * * * *"
	requestBodyLimit      = "1M"
	defaultHealthCronExpr = "*/15 * * * *"
)

// Server handles HTTP requests for the ThatOneMovie API.
type Server struct {
	echo      *echo.Echo
	hub       *websocket.Hub
	logs      LogsProvider
	logger    zerolog.Logger
	cfg       *config.Config
	startTime time.Time

	healthService    *health.Service
	healthHandlers   *health.Handlers
	scheduler        *scheduler.Scheduler
	authService      *auth.Service
	gotrue           *auth.GoTrueClient
	metadataService  *metadata.Service
	llmClient        *llm.Client
	recommendService *recommend.Service
	userdataService  *userdata.Service
	recommendLimiter *ratelimit.Limiter
	authLimiter      *ratelimit.Limiter
}

// NewServer wires every service onto store and hub and builds the router.
func NewServer(cfg *config.Config, store userdata.Store, hub *websocket.Hub, logs LogsProvider, logger zerolog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	s := &Server{
		echo:      e,
		hub:       hub,
		logs:      logs,
		logger:    logger,
		cfg:       cfg,
		startTime: time.Now(),
	}

	s.healthService = health.NewService(logger)
	s.healthService.SetBroadcaster(hub)
	s.healthHandlers = health.NewHandlers(s.healthService)

	authService, err := auth.NewService(cfg.Auth, logger)
	if err != nil {
		return nil, err
	}
	s.authService = authService
	s.gotrue = auth.NewGoTrueClient(cfg.Backend, logger)

	s.metadataService = metadata.NewService(cfg.Metadata, logger)
	s.metadataService.SetHealthService(s.healthService)

	s.llmClient = llm.NewClient(cfg.AI, logger, llm.WithStateChangeHook(s.onBreakerStateChange))
	s.healthService.RegisterItem(health.CategoryAI, completionHealthID, "Completion endpoint")
	if !s.llmClient.IsConfigured() {
		s.healthService.SetWarning(health.CategoryAI, completionHealthID, "API key not configured, serving fallback recommendations")
	}

	enricher := recommend.NewEnricher(s.metadataService.Client(), cfg.AI.EnrichWorkers, logger)
	s.recommendService = recommend.NewService(s.llmClient, enricher, logger)
	s.recommendService.SetBroadcaster(hub)

	s.userdataService = userdata.NewService(store, logger)
	s.userdataService.SetHealthService(s.healthService)

	s.recommendLimiter = ratelimit.NewLimiter(cfg.Server.RecommendRateLimit, time.Minute)
	s.authLimiter = ratelimit.NewLimiter(cfg.Server.AuthRateLimit, time.Minute)

	sched, err := scheduler.New(logger)
	if err != nil {
		return nil, err
	}
	s.scheduler = sched
	if err := s.registerTasks(store); err != nil {
		return nil, err
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// registerTasks wires the background jobs and the on-demand health checks.
func (s *Server) registerTasks(store userdata.Store) error {
	probes := []tasks.Probe{
		{Category: health.CategoryMetadata, ID: "tmdb", Name: "TMDB", Check: s.metadataService.CheckHealth},
		{Category: health.CategoryBackend, ID: store.Name(), Name: "User data backend", Check: s.userdataService.CheckHealth},
	}
	if s.gotrue.IsConfigured() {
		probes = append(probes, tasks.Probe{Category: health.CategoryBackend, ID: authHealthID, Name: "Auth server", Check: s.gotrue.Health})
	}
	for _, p := range probes {
		s.healthHandlers.RegisterCheck(p.Category, p.ID, p.Check)
	}

	cron := s.cfg.Scheduler.HealthCheckCron
	if cron == "" {
		cron = defaultHealthCronExpr
	}
	if err := tasks.RegisterHealthCheckTask(s.scheduler, cron, s.healthService, probes, s.logger); err != nil {
		return err
	}

	return s.scheduler.RegisterTask(scheduler.TaskConfig{
		ID:          rateLimitCleanupID,
		Name:        "Rate Limit Cleanup",
		Description: "Drops expired rate limiter buckets",
		Cron:        rateLimitCleanupCron,
		Func: func(ctx context.Context) error {
			return errors.Join(s.recommendLimiter.Cleanup(ctx), s.authLimiter.Cleanup(ctx))
		},
	})
}

// onBreakerStateChange mirrors the completion circuit into the health registry.
func (s *Server) onBreakerStateChange(_, to gobreaker.State) {
	switch to {
	case gobreaker.StateOpen:
		s.healthService.SetError(health.CategoryAI, completionHealthID, "circuit open after repeated failures")
	case gobreaker.StateHalfOpen:
		s.healthService.SetWarning(health.CategoryAI, completionHealthID, "probing after cooldown")
	case gobreaker.StateClosed:
		s.healthService.ClearStatus(health.CategoryAI, completionHealthID)
	}
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders())
	s.echo.Use(middleware.BodyLimit(requestBodyLimit))
	s.echo.Use(apimw.CORS(s.cfg.Server.AllowedOrigins))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("requestId", v.RequestID).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("requestId", v.RequestID).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	adminOnly := auth.AdminToken(s.cfg.Server.AdminToken)
	s.echo.GET("/ws", s.hub.HandleWebSocket, adminOnly)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	authGroup := api.Group("/auth")
	authGroup.Use(s.authLimiter.Middleware(ratelimit.ByIP))
	auth.NewHandlers(s.authService, s.gotrue).RegisterRoutes(authGroup)

	metadata.NewHandlers(s.metadataService).RegisterRoutes(api.Group("/movies"))

	recommend.NewHandlers(s.recommendService).RegisterRoutes(
		api.Group("/recommendations"),
		s.authService.RequireUser(),
		s.recommendLimiter.Middleware(userOrIP),
	)

	userdata.NewHandlers(s.userdataService).RegisterRoutes(api.Group("/me"), s.authService.RequireUser())

	system := api.Group("/system")
	system.Use(adminOnly)
	s.healthHandlers.RegisterRoutes(system.Group("/health"))
	NewLogsHandlers(s.logs).RegisterRoutes(system.Group("/logs"))
	scheduler.NewHandlers(s.scheduler).RegisterRoutes(system.Group("/tasks"))
}

// userOrIP keys the AI limiter by user, so one account cannot spread load over addresses.
func userOrIP(c echo.Context) string {
	if session := auth.SessionFrom(c); session != nil {
		return "user:" + session.UserID
	}
	return "ip:" + c.RealIP()
}

// Start starts background tasks and serves HTTP until Shutdown.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	s.scheduler.Start()

	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and its background tasks.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if err := s.scheduler.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stop scheduler")
	}

	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/v1/status
func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":   config.Version,
		"startTime": s.startTime.Format(time.RFC3339),
		"backend":   s.cfg.Backend.Kind,
		"catalog": map[string]interface{}{
			"configured":     s.metadataService.IsConfigured(),
			"searchOrdering": s.cfg.Metadata.TMDB.SearchOrdering,
		},
		"ai": map[string]interface{}{
			"configured": s.llmClient.IsConfigured(),
			"model":      s.cfg.AI.Model,
			"circuit":    s.llmClient.State().String(),
		},
		"authBackend": s.gotrue.IsConfigured(),
		"healthy":     !s.healthService.GetSummary().HasIssues,
	})
}
