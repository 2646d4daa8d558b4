package datastore

import (
	"errors"
	"sort"
	"strings"
)

// Kind es el tipo de escritura pendiente.
type Kind int

const (
	Insert Kind = iota
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "unknown"
}

var errEmptyUpdate = errors.New("update sin columnas")

// Change es una escritura pendiente hasta el próximo Flush.
type Change struct {
	Kind     Kind
	Table    string
	Row      any            // fila tipada (puede ser nil en borrados masivos)
	Values   map[string]any // columnas de INSERT o SET de UPDATE
	KeyCol   string         // columna de la clave para UPDATE/DELETE
	KeyValue any
	Where    []Predicate // condiciones adicionales agregadas por las etapas

	// Affected es la cantidad de filas afectadas tras el Flush.
	Affected int64
}

// Build renderiza la escritura con placeholders ?.
func (c *Change) Build() (string, []any, error) {
	var b strings.Builder
	var args []any
	switch c.Kind {
	case Insert:
		cols := sortedKeys(c.Values)
		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		for i, col := range cols {
			quoted[i] = QuoteIdent(col)
			marks[i] = "?"
			args = append(args, c.Values[col])
		}
		b.WriteString("INSERT INTO " + QuoteIdent(c.Table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")")
		return b.String(), args, nil
	case Update:
		cols := sortedKeys(c.Values)
		if len(cols) == 0 {
			return "", nil, errEmptyUpdate
		}
		sets := make([]string, len(cols))
		for i, col := range cols {
			sets[i] = QuoteIdent(col) + " = ?"
			args = append(args, c.Values[col])
		}
		b.WriteString("UPDATE " + QuoteIdent(c.Table) + " SET " + strings.Join(sets, ", "))
	case Delete:
		b.WriteString("DELETE FROM " + QuoteIdent(c.Table))
	}
	b.WriteString(" WHERE ")
	preds := append([]Predicate{Where(QuoteIdent(c.KeyCol)+" = ?", c.KeyValue)}, c.Where...)
	writePredicates(&b, &args, preds)
	return b.String(), args, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
