package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thatonemovie/thatonemovie/internal/auth"
	"github.com/thatonemovie/thatonemovie/internal/config"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var userID, email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for local development",
		Long: "Signs an access token with auth.jwt_secret so the API can be exercised " +
			"without a hosted auth server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.config.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret must be set to issue tokens")
			}
			if userID == "" {
				userID = uuid.New().String()
			}
			token, err := issueToken(ctx.config.Auth, userID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Subject user ID (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime")

	return cmd
}

func issueToken(cfg config.AuthConfig, userID, email string, ttl time.Duration) (string, error) {
	service, err := auth.NewService(cfg, zerolog.Nop())
	if err != nil {
		return "", err
	}
	return service.IssueToken(userID, email, ttl)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Version)
		},
	}
}
