// Package sqlite es el backend embebido de la canalización de datos (mattn/go-sqlite3).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

// Open abre la base SQLite en path con claves foráneas activas. Usa una sola conexión:
// SQLite admite un escritor a la vez y ":memory:" solo existe dentro de su conexión.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Backend abre transacciones database/sql sobre SQLite.
type Backend struct {
	db *sql.DB
}

// NewBackend construye el backend sobre un *sql.DB ya abierto.
func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

var _ datastore.Backend = (*Backend)(nil)

func (b *Backend) Dialect() datastore.Dialect { return datastore.SQLite }

func (b *Backend) Begin(ctx context.Context) (datastore.Tx, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txAdapter{tx: tx}, nil
}

// Close cierra la base.
func (b *Backend) Close() { _ = b.db.Close() }

type txAdapter struct {
	tx *sql.Tx
}

func (t *txAdapter) Query(ctx context.Context, query string, args ...any) (datastore.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	return &rowsAdapter{rows: rows}, nil
}

func (t *txAdapter) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (t *txAdapter) Commit(context.Context) error   { return classify(t.tx.Commit()) }
func (t *txAdapter) Rollback(context.Context) error { return t.tx.Rollback() }

type rowsAdapter struct {
	rows *sql.Rows
}

func (r *rowsAdapter) Next() bool             { return r.rows.Next() }
func (r *rowsAdapter) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *rowsAdapter) Err() error             { return r.rows.Err() }
func (r *rowsAdapter) Close()                 { _ = r.rows.Close() }

// classify traduce violaciones de unicidad a domain.ErrDuplicate.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %w", domain.ErrDuplicate, err)
	}
	return err
}
