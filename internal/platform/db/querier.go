package db

import (
	"context"

	"github.com/avito-tech/go-transaction-manager/pgxv5"
	"github.com/avito-tech/go-transaction-manager/trm/manager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the query surface repositories depend on. It is satisfied by
// *Conn, pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Conn routes each statement to the transaction stored in ctx by TxManager,
// or to the pool when no transaction is active.
type Conn struct {
	pool   *pgxpool.Pool
	getter *pgxv5.CtxGetter
}

func NewConn(pool *pgxpool.Pool) *Conn {
	return &Conn{pool: pool, getter: pgxv5.DefaultCtxGetter}
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return c.get(ctx).Exec(ctx, sql, args...)
}

func (c *Conn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return c.get(ctx).Query(ctx, sql, args...)
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return c.get(ctx).QueryRow(ctx, sql, args...)
}

func (c *Conn) get(ctx context.Context) pgxv5.Tr {
	return c.getter.DefaultTrOrDB(ctx, c.pool)
}

// TxManager runs a function inside a transaction that Conn picks up from ctx.
type TxManager struct {
	internal *manager.Manager
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{internal: manager.Must(pgxv5.NewDefaultFactory(pool))}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.internal.Do(ctx, fn)
}
