package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/database"
	"github.com/thatonemovie/thatonemovie/internal/logger"
	"github.com/thatonemovie/thatonemovie/internal/startup"
	"github.com/thatonemovie/thatonemovie/internal/supabase"
	"github.com/thatonemovie/thatonemovie/internal/userdata"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the application logger. Short-lived commands pass a
// level override so log lines do not drown their output.
func (c *commandContext) newLogger(level string, streaming bool) *logger.Logger {
	cfg := c.config.Logging
	if level == "" {
		level = cfg.Level
	}
	return logger.New(logger.Config{
		Level:           level,
		Format:          cfg.Format,
		Path:            cfg.Path,
		MaxSizeMB:       cfg.MaxSizeMB,
		MaxBackups:      cfg.MaxBackups,
		MaxAgeDays:      cfg.MaxAgeDays,
		Compress:        cfg.Compress,
		EnableStreaming: streaming,
		BufferSize:      1000,
	})
}

// openStore opens the configured user data backend. The returned close
// function is never nil.
func (c *commandContext) openStore(ctx context.Context, log zerolog.Logger) (userdata.Store, func() error, error) {
	cfg := c.config
	noop := func() error { return nil }

	switch cfg.Backend.Kind {
	case config.BackendSupabase:
		client, err := supabase.NewClient(cfg.Backend, log)
		if err != nil {
			return nil, noop, err
		}
		store := supabase.NewStore(client)
		err = startup.WithRetry(ctx, "backend ping", startup.DefaultRetryConfig(), func() error {
			return store.Ping(ctx)
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("backend unreachable, user data requests will fail until it recovers")
		}
		return store, noop, nil

	case config.BackendSQLite:
		db, err := c.openDatabase(ctx, log)
		if err != nil {
			return nil, noop, err
		}
		return database.NewStore(db), db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

func (c *commandContext) openDatabase(ctx context.Context, log zerolog.Logger) (*database.DB, error) {
	db, err := database.New(c.config.Database.Path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", db.Path()).Msg("running database migrations")
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
