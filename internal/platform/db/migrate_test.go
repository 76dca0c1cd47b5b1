package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test file %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadMigrations(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_registry.sql": "CREATE TABLE patients (id BIGSERIAL PRIMARY KEY);",
		"002_orders.sql":   "CREATE TABLE orders (id BIGSERIAL PRIMARY KEY);",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_registry.sql" {
		t.Errorf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[0].SQL != "CREATE TABLE patients (id BIGSERIAL PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
	if migrations[1].Version != 2 {
		t.Errorf("expected version 2, got %d", migrations[1].Version)
	}
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"010_tables.sql": "SELECT 10;",
		"002_second.sql": "SELECT 2;",
		"001_first.sql":  "SELECT 1;",
		"005_middle.sql": "SELECT 5;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	expected := []int{1, 2, 5, 10}
	if len(migrations) != len(expected) {
		t.Fatalf("expected %d migrations, got %d", len(expected), len(migrations))
	}
	for i, v := range expected {
		if migrations[i].Version != v {
			t.Errorf("migration[%d]: expected version %d, got %d", i, v, migrations[i].Version)
		}
	}
}

func TestLoadMigrations_SkipsInvalidNames(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_valid.sql":      "SELECT 1;",
		"readme.sql":         "-- no version prefix",
		"notes.txt":          "not sql",
		"abc_invalid.sql":    "-- non-numeric prefix",
		"002_also_valid.sql": "SELECT 2;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 valid migrations, got %d", len(migrations))
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_a.sql": "SELECT 1;",
		"1_b.sql":   "SELECT 1;",
	})

	if _, err := NewMigrator(nil, dir).LoadMigrations(); err == nil {
		t.Error("expected error for duplicate version")
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	if _, err := NewMigrator(nil, "/nonexistent/path").LoadMigrations(); err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestNewMigrator_Schema(t *testing.T) {
	if got := NewMigrator(nil, "dir").Schema(); got != DefaultSchema {
		t.Errorf("expected default schema %q, got %q", DefaultSchema, got)
	}
	if got := NewMigrator(nil, "dir", WithSchema("registry_test")).Schema(); got != "registry_test" {
		t.Errorf("expected registry_test, got %q", got)
	}
	if got := NewMigrator(nil, "dir", WithSchema("")).Schema(); got != DefaultSchema {
		t.Errorf("empty schema should keep default, got %q", got)
	}
}

func TestMigrator_Table(t *testing.T) {
	m := NewMigrator(nil, "dir", WithSchema("reg"))
	if got := m.table(); got != `"reg"."schema_migrations"` {
		t.Errorf("unexpected table identifier %s", got)
	}
}
