package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ehr/registry/internal/domain/identity"
	"github.com/ehr/registry/internal/domain/orders"
	"github.com/ehr/registry/internal/platform/db"
	"github.com/ehr/registry/internal/platform/middleware"
	"github.com/ehr/registry/internal/platform/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", true, "Apply pending migrations before serving")
	return cmd
}

func runServer(migrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, logger, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, db.DefaultPingRetry())
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if migrate {
		n, err := db.NewMigrator(pool, cfg.MigrationsDir, db.WithMigrationLogger(logger)).Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("applied", n).Msg("migrations up to date")
	}

	conn := db.NewConn(pool)
	identitySvc := identity.NewService(identity.NewPatientRepo(conn), db.NewTxManager(pool))
	orderSvc := orders.NewService(orders.NewOrderRepo(conn))

	if cfg.SeedOnStart {
		n, err := identitySvc.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info().Int("patients", n).Msg("seed complete")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.New(logger, server.Options{
		Diagnostics:    cfg.IsDev(),
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      middleware.RateLimitConfig{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow},
		BodyLimit:      cfg.BodyLimit,
		RequestTimeout: cfg.RequestTimeout,
		DB:             pool,
		Registry:       reg,
	})
	identity.NewHandler(identitySvc).RegisterRoutes(srv.API())
	orders.NewHandler(orderSvc).RegisterRoutes(srv.API())

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := srv.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
