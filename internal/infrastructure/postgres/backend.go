// Package postgres es el backend Postgres de la canalización de datos (pgx/v5).
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

// Backend abre transacciones pgx sobre el pool.
type Backend struct {
	pool *pgxpool.Pool
}

// NewBackend construye el backend con el pool.
func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

var _ datastore.Backend = (*Backend)(nil)

func (b *Backend) Dialect() datastore.Dialect { return datastore.Postgres }

// Begin inicia una transacción; las variables publicadas con set_config(..., true)
// viven solo dentro de ella.
func (b *Backend) Begin(ctx context.Context) (datastore.Tx, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txAdapter{tx: tx}, nil
}

// Close cierra el pool.
func (b *Backend) Close() { b.pool.Close() }

type txAdapter struct {
	tx pgx.Tx
}

func (t *txAdapter) Query(ctx context.Context, sql string, args ...any) (datastore.Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	return &rowsAdapter{rows: rows}, nil
}

func (t *txAdapter) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

func (t *txAdapter) Commit(ctx context.Context) error   { return classify(t.tx.Commit(ctx)) }
func (t *txAdapter) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

type rowsAdapter struct {
	rows pgx.Rows
}

func (r *rowsAdapter) Next() bool             { return r.rows.Next() }
func (r *rowsAdapter) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *rowsAdapter) Err() error             { return classify(r.rows.Err()) }
func (r *rowsAdapter) Close()                 { r.rows.Close() }
