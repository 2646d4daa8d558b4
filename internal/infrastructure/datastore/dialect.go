// Package datastore es la canalización de acceso a datos: consultas y cambios explícitos
// que pasan por etapas de lectura y escritura antes de llegar al backend.
package datastore

import (
	"strconv"
	"strings"
)

// Dialect adapta el SQL genérico (placeholders ?) a un backend concreto.
type Dialect interface {
	Name() string
	Placeholder(n int) string
}

type postgresDialect struct{}

func (postgresDialect) Name() string             { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }

// Dialectos soportados.
var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// Rebind reemplaza cada ? fuera de literales de texto por el placeholder del dialecto.
func Rebind(d Dialect, query string) string {
	if d == nil || d.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// QuoteIdent cita un identificador SQL con comillas dobles.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
