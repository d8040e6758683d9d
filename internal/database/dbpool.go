package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

type Row interface {
	Scan(dest ...any) error
}

type Result interface {
	RowsAffected() (int64, error)
}

// Executor is the query surface shared by DBPool and Tx. Repository helpers
// take it so the same statement can run inside or outside a transaction.
type Executor interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Exec(ctx context.Context, query string, args ...any) (Result, error)
}

type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBPool is the only surface repositories see; production code backs it with
// pgxpool, tests with pgxmock.
type DBPool interface {
	Executor
	Begin(ctx context.Context) (Tx, error)
}

type PgxRows struct{ pgx.Rows }

func (r PgxRows) Scan(dest ...any) error {
	return r.Rows.Scan(dest...)
}

func (r PgxRows) Close() {
	r.Rows.Close()
}

func (r PgxRows) Err() error {
	return r.Rows.Err()
}

func (r PgxRows) Next() bool {
	return r.Rows.Next()
}

type PgxRow struct{ pgx.Row }

func (r PgxRow) Scan(dest ...any) error {
	return r.Row.Scan(dest...)
}

// errRow defers a query-time failure to Scan, matching how pgx surfaces
// QueryRow errors.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type PgxResult struct{ pgconn.CommandTag }

func (r PgxResult) RowsAffected() (int64, error) {
	return r.CommandTag.RowsAffected(), nil
}

type PgxTx struct{ pgx.Tx }

func (t PgxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.Tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return PgxRows{Rows: rows}, nil
}

func (t PgxTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return PgxRow{Row: t.Tx.QueryRow(ctx, query, args...)}
}

func (t PgxTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	tag, err := t.Tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return PgxResult{CommandTag: tag}, nil
}

func (t PgxTx) Commit(ctx context.Context) error {
	return t.Tx.Commit(ctx)
}

func (t PgxTx) Rollback(ctx context.Context) error {
	return t.Tx.Rollback(ctx)
}
