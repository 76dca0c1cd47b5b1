package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PingRetry controls how long NewPool keeps retrying the initial ping while
// the database is still starting.
type PingRetry struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

func DefaultPingRetry() PingRetry {
	return PingRetry{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
	}
}

func NewPool(ctx context.Context, logger zerolog.Logger, databaseURL string, maxConns, minConns int32, retry PingRetry) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := ping(ctx, logger, pool, retry); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func ping(ctx context.Context, logger zerolog.Logger, pool *pgxpool.Pool, retry PingRetry) error {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(retry.InitialInterval),
		backoff.WithMaxInterval(retry.MaxInterval),
		backoff.WithMaxElapsedTime(retry.MaxElapsedTime),
	)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := pool.Ping(ctx)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("database not reachable yet")
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return err
	}

	logger.Info().Int("attempts", attempt).Msg("database connection established")
	return nil
}
