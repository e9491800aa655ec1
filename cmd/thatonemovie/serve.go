package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thatonemovie/thatonemovie/internal/api"
	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			log := ctx.newLogger("", true)
			defer log.Close()

			log.Info().
				Str("version", config.Version).
				Str("backend", cfg.Backend.Kind).
				Str("logLevel", cfg.Logging.Level).
				Msg("starting ThatOneMovie")

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hub := websocket.NewHub()
			go hub.Run(runCtx)
			log.SetBroadcastHub(hub)

			store, closeStore, err := ctx.openStore(runCtx, log.Logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					log.Warn().Err(err).Msg("failed to close store")
				}
			}()

			server, err := api.NewServer(cfg, store, hub, log, log.Logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(cfg.Server.Address())
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-runCtx.Done():
				log.Info().Msg("received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}

			log.Info().Msg("server stopped")
			return nil
		},
	}
}
