package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

var sqliteTypes = strings.NewReplacer(
	"{{ts}}", "TIMESTAMP",
	"{{money}}", "TEXT",
	"{{bigint}}", "INTEGER",
	"{{bool}}", "BOOLEAN",
)

// SQLite es el esquema embebido. No tiene políticas: el aislamiento lo aplica la estrategia embebida.
type SQLite struct{}

// NewSQLite construye el esquema SQLite.
func NewSQLite() *SQLite { return &SQLite{} }

var _ Definition = (*SQLite)(nil)

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) CreateStatements() []string { return render(sqliteTypes) }

func (s *SQLite) PolicyStatements() []string { return nil }

func (s *SQLite) MarkerStatement() string {
	return `INSERT OR IGNORE INTO "system_meta" ("key", "value", "created_at") VALUES ('initialized', '1', CURRENT_TIMESTAMP)`
}

// Reset elimina cada tabla listada en sqlite_master.
func (s *SQLite) Reset(ctx context.Context, exec datastore.Executor) error {
	rows, err := exec.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	// Orden inverso de creación: las tablas hijas caen antes que sus referencias.
	for i := len(names) - 1; i >= 0; i-- {
		if _, err := exec.Exec(ctx, `DROP TABLE IF EXISTS `+datastore.QuoteIdent(names[i])); err != nil {
			return fmt.Errorf("drop table %s: %w", names[i], err)
		}
	}
	return nil
}
