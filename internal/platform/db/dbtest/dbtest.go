// Package dbtest provisions an isolated, migrated schema for integration
// tests. Tests are skipped unless TEST_DATABASE_URL is set.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/registry/internal/platform/db"
)

const EnvURL = "TEST_DATABASE_URL"

// NewPool returns a pool bound to a fresh schema with all migrations
// applied. The schema is dropped when the test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skipf("%s not set, skipping integration test", EnvURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "registry_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		t.Fatalf("parse %s: %v", EnvURL, err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	migrator := db.NewMigrator(pool, migrationsDir(t), db.WithSchema(schema), db.WithMigrationLogger(zerolog.Nop()))
	if _, err := migrator.Up(ctx); err != nil {
		pool.Close()
		t.Fatalf("migrate schema %s: %v", schema, err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pgx.Identifier{schema}.Sanitize())); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		pool.Close()
	})

	return pool
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate migrations directory")
	}
	// internal/platform/db/dbtest -> repository root
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations")
}
