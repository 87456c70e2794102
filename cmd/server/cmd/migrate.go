package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/config"
	"github.com/Togather-Foundation/eventhub/internal/storage/postgres"
	"github.com/Togather-Foundation/eventhub/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var (
	migrationsPath string
	migrateSteps   int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply or roll back schema migrations.

PostgreSQL uses the versioned migrations under --path. SQLite applies its
embedded schema, which is idempotent, so only "up" is meaningful there.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if cfg.Database.Driver == "sqlite" {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			db, err := sqlite.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			fmt.Fprintln(cmd.OutOrStdout(), "sqlite schema applied")
			return nil
		}
		if err := postgres.MigrateUp(cfg.Database.URL, migrationsPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (PostgreSQL only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requirePostgres()
		if err != nil {
			return err
		}
		if err := postgres.MigrateDown(cfg.Database.URL, migrationsPath, migrateSteps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", migrateSteps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version (PostgreSQL only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requirePostgres()
		if err != nil {
			return err
		}
		version, dirty, err := postgres.Version(cfg.Database.URL, migrationsPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", version, dirty)
		return nil
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", postgres.DefaultMigrationsPath, "migrations directory")
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

func requirePostgres() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return config.Config{}, fmt.Errorf("command requires DATABASE_DRIVER=postgres, got %q", cfg.Database.Driver)
	}
	return cfg, nil
}
