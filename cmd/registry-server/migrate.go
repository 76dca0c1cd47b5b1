package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehr/registry/internal/domain/identity"
	"github.com/ehr/registry/internal/platform/db"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			pool, err := db.NewPool(ctx, logger, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, db.DefaultPingRetry())
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir, db.WithSchema(schema), db.WithMigrationLogger(logger))
			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", migrator.Schema())

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, newLogger(cfg), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, db.DefaultPingRetry())
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir, db.WithSchema(schema))
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Migration status for schema: %s\n", migrator.Schema())
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo patients into an empty registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, newLogger(cfg), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, db.DefaultPingRetry())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := identity.NewService(identity.NewPatientRepo(db.NewConn(pool)), db.NewTxManager(pool))
			n, err := svc.Seed(ctx)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Registry already has patients; nothing seeded.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d patient(s).\n", n)
			return nil
		},
	}
}
