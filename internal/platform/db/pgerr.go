package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories translate.
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	PgErrUniqueViolation     = "23505"
	PgErrForeignKeyViolation = "23503"
)

func IsPgErrorWithCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func IsUniqueViolation(err error) bool {
	return IsPgErrorWithCode(err, PgErrUniqueViolation)
}

func IsForeignKeyViolation(err error) bool {
	return IsPgErrorWithCode(err, PgErrForeignKeyViolation)
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
