package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the local SQLite schema",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Backend.Kind != config.BackendSQLite {
				return fmt.Errorf("migrations apply to the %s backend only; %s schemas are managed by the hosted project",
					config.BackendSQLite, cfg.Backend.Kind)
			}
			return nil
		},
	}

	run := func(fn func(cmd *cobra.Command, db *database.DB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := database.New(ctx.config.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(cmd, db)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: run(func(cmd *cobra.Command, db *database.DB) error {
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			return printVersion(cmd, db)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: run(func(cmd *cobra.Command, db *database.DB) error {
			if err := db.MigrateDown(cmd.Context()); err != nil {
				return err
			}
			return printVersion(cmd, db)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied migrations",
		RunE: run(func(cmd *cobra.Command, db *database.DB) error {
			return db.MigrationStatus(cmd.Context())
		}),
	})

	return cmd
}

func printVersion(cmd *cobra.Command, db *database.DB) error {
	version, err := db.Version(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
