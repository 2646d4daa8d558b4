package datastore

import (
	"strconv"
	"strings"
)

// Source es una fuente de filas en FROM o JOIN: una tabla o una subconsulta con alias.
type Source struct {
	Table string
	Alias string
	Sub   *Query
}

// Ref devuelve el nombre con el que las columnas de la fuente se referencian en el SQL.
func (s *Source) Ref() string {
	if s.Alias != "" {
		return QuoteIdent(s.Alias)
	}
	return QuoteIdent(s.Table)
}

// Predicate es un fragmento booleano con sus argumentos. Si In no es nil el fragmento se
// renderiza como "<SQL> IN (<subconsulta>)" y Args se ignora.
type Predicate struct {
	SQL  string
	Args []any
	In   *Query
}

// Where construye un predicado simple.
func Where(sql string, args ...any) Predicate {
	return Predicate{SQL: sql, Args: args}
}

// InSubquery construye "column IN (sub)".
func InSubquery(column string, sub *Query) Predicate {
	return Predicate{SQL: column, In: sub}
}

// Join une una fuente adicional a la consulta.
type Join struct {
	Kind   string // INNER, LEFT
	Source Source
	On     []Predicate
}

// Query es una lectura SELECT expresada como estructura para que las etapas puedan
// inspeccionar sus fuentes antes de renderizarla.
type Query struct {
	Columns []string
	From    Source
	Joins   []Join
	Where   []Predicate
	GroupBy []string
	OrderBy []string
	Limit   int
	Offset  int

	guarded bool
}

// Select inicia una consulta con las columnas indicadas (por defecto *).
func Select(columns ...string) *Query {
	return &Query{Columns: columns}
}

// FromTable fija la tabla principal.
func (q *Query) FromTable(table string) *Query {
	q.From = Source{Table: table}
	return q
}

// FromAs fija la tabla principal con alias.
func (q *Query) FromAs(table, alias string) *Query {
	q.From = Source{Table: table, Alias: alias}
	return q
}

// FromSub usa una subconsulta como fuente principal.
func (q *Query) FromSub(sub *Query, alias string) *Query {
	q.From = Source{Sub: sub, Alias: alias}
	return q
}

// Join agrega un JOIN de tabla.
func (q *Query) Join(kind, table, alias, on string, args ...any) *Query {
	q.Joins = append(q.Joins, Join{Kind: kind, Source: Source{Table: table, Alias: alias}, On: []Predicate{Where(on, args...)}})
	return q
}

// Filter agrega un predicado al WHERE.
func (q *Query) Filter(sql string, args ...any) *Query {
	q.Where = append(q.Where, Where(sql, args...))
	return q
}

// FilterIn agrega "column IN (sub)" al WHERE.
func (q *Query) FilterIn(column string, sub *Query) *Query {
	q.Where = append(q.Where, InSubquery(column, sub))
	return q
}

// Order agrega columnas de ordenamiento.
func (q *Query) Order(cols ...string) *Query {
	q.OrderBy = append(q.OrderBy, cols...)
	return q
}

// Page fija LIMIT y OFFSET.
func (q *Query) Page(limit, offset int) *Query {
	q.Limit, q.Offset = limit, offset
	return q
}

// Guarded informa si las etapas de lectura ya procesaron la consulta.
func (q *Query) Guarded() bool { return q.guarded }

// MarkGuarded marca la consulta como procesada para no aplicar filtros dos veces.
func (q *Query) MarkGuarded() { q.guarded = true }

// Build renderiza la consulta con placeholders ? y los argumentos en orden de aparición.
func (q *Query) Build() (string, []any) {
	var b strings.Builder
	var args []any
	q.write(&b, &args)
	return b.String(), args
}

func (q *Query) write(b *strings.Builder, args *[]any) {
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(q.Columns, ", "))
	}
	b.WriteString(" FROM ")
	writeSource(b, args, &q.From)
	for i := range q.Joins {
		j := &q.Joins[i]
		kind := j.Kind
		if kind == "" {
			kind = "INNER"
		}
		b.WriteString(" " + kind + " JOIN ")
		writeSource(b, args, &j.Source)
		if len(j.On) > 0 {
			b.WriteString(" ON ")
			writePredicates(b, args, j.On)
		}
	}
	if len(q.Where) > 0 {
		b.WriteString(" WHERE ")
		writePredicates(b, args, q.Where)
	}
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY " + strings.Join(q.GroupBy, ", "))
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(q.OrderBy, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
		if q.Offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(q.Offset))
		}
	}
}

func writeSource(b *strings.Builder, args *[]any, s *Source) {
	if s.Sub != nil {
		b.WriteString("(")
		s.Sub.write(b, args)
		b.WriteString(") AS " + QuoteIdent(s.Alias))
		return
	}
	b.WriteString(QuoteIdent(s.Table))
	if s.Alias != "" {
		b.WriteString(" AS " + QuoteIdent(s.Alias))
	}
}

func writePredicates(b *strings.Builder, args *[]any, preds []Predicate) {
	for i, p := range preds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("(")
		if p.In != nil {
			b.WriteString(p.SQL + " IN (")
			p.In.write(b, args)
			b.WriteString(")")
		} else {
			b.WriteString(p.SQL)
			*args = append(*args, p.Args...)
		}
		b.WriteString(")")
	}
}
