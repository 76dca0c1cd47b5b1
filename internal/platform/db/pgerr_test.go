package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsPgErrorWithCode(t *testing.T) {
	unique := fmt.Errorf("insert patient: %w", &pgconn.PgError{Code: PgErrUniqueViolation})
	fk := &pgconn.PgError{Code: PgErrForeignKeyViolation}

	if !IsUniqueViolation(unique) {
		t.Error("expected wrapped 23505 to be a unique violation")
	}
	if IsUniqueViolation(fk) {
		t.Error("did not expect 23503 to be a unique violation")
	}
	if !IsForeignKeyViolation(fk) {
		t.Error("expected 23503 to be a foreign key violation")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Error("did not expect a plain error to match")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to match")
	}
	if IsNoRows(errors.New("other")) {
		t.Error("did not expect other error to match")
	}
}
