package datastore

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/tenancy"
)

// Rows es el cursor mínimo común a pgx y database/sql.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Executor ejecuta SQL ya renderizado para el dialecto del backend.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Tx es una transacción del backend.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ReadStage procesa cada consulta antes de ejecutarla.
type ReadStage interface {
	BeforeRead(ctx context.Context, q *Query) error
}

// WriteStage procesa las escrituras pendientes antes de ejecutarlas.
type WriteStage interface {
	BeforeWrite(ctx context.Context, changes []*Change) error
}

// ReadStageFunc adapta una función a ReadStage.
type ReadStageFunc func(ctx context.Context, q *Query) error

func (f ReadStageFunc) BeforeRead(ctx context.Context, q *Query) error { return f(ctx, q) }

// WriteStageFunc adapta una función a WriteStage.
type WriteStageFunc func(ctx context.Context, changes []*Change) error

func (f WriteStageFunc) BeforeWrite(ctx context.Context, changes []*Change) error {
	return f(ctx, changes)
}

// Session es una unidad de trabajo abierta sobre una transacción.
type Session struct {
	tx       Tx
	dialect  Dialect
	registry *Registry
	reads    []ReadStage
	writes   []WriteStage
	pending  []*Change
	// scope es el contexto de tenant con el que se armó la sesión.
	scope *tenancy.RequestContext
}

// Registry devuelve el registro de entidades de la sesión.
func (s *Session) Registry() *Registry { return s.registry }

// Dialect devuelve el dialecto del backend.
func (s *Session) Dialect() Dialect { return s.dialect }

// Raw devuelve un ejecutor que no pasa por las etapas. Lo usan los enforcers para
// publicar el contexto y el bootstrap para el DDL; el negocio usa Select y las escrituras.
func (s *Session) Raw() Executor {
	return rawExecutor{tx: s.tx, dialect: s.dialect}
}

// Select ejecuta la consulta tras las etapas de lectura y llama scan por cada fila.
func (s *Session) Select(ctx context.Context, q *Query, scan func(Rows) error) error {
	for _, st := range s.reads {
		if err := st.BeforeRead(ctx, q); err != nil {
			return err
		}
	}
	sql, args := q.Build()
	rows, err := s.tx.Query(ctx, Rebind(s.dialect, sql), args...)
	if err != nil {
		return fmt.Errorf("select %s: %w", q.From.Table, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SelectOne ejecuta la consulta y escanea solo la primera fila. found es false si no hubo filas.
func (s *Session) SelectOne(ctx context.Context, q *Query, scan func(Rows) error) (found bool, err error) {
	if q.Limit == 0 {
		q.Limit = 1
	}
	err = s.Select(ctx, q, func(r Rows) error {
		if found {
			return nil
		}
		found = true
		return scan(r)
	})
	return found, err
}

// Insert encola una inserción.
func (s *Session) Insert(table string, row any, values map[string]any) *Change {
	return s.enqueue(&Change{Kind: Insert, Table: table, Row: row, Values: values})
}

// Update encola una actualización por clave.
func (s *Session) Update(table string, row any, keyCol string, keyValue any, values map[string]any) *Change {
	return s.enqueue(&Change{Kind: Update, Table: table, Row: row, KeyCol: keyCol, KeyValue: keyValue, Values: values})
}

// Delete encola un borrado por clave.
func (s *Session) Delete(table string, row any, keyCol string, keyValue any) *Change {
	return s.enqueue(&Change{Kind: Delete, Table: table, Row: row, KeyCol: keyCol, KeyValue: keyValue})
}

func (s *Session) enqueue(c *Change) *Change {
	s.pending = append(s.pending, c)
	return c
}

// Flush pasa las escrituras pendientes por las etapas y las ejecuta en orden.
// Un rechazo aborta el lote completo; Store.Run revierte la transacción.
func (s *Session) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := s.pending
	s.pending = nil
	for _, st := range s.writes {
		if err := st.BeforeWrite(ctx, batch); err != nil {
			return err
		}
	}
	for _, c := range batch {
		sql, args, err := c.Build()
		if err != nil {
			return fmt.Errorf("%s %s: %w", c.Kind, c.Table, err)
		}
		n, err := s.tx.Exec(ctx, Rebind(s.dialect, sql), args...)
		if err != nil {
			return fmt.Errorf("%s %s: %w", c.Kind, c.Table, err)
		}
		c.Affected = n
	}
	return nil
}

type rawExecutor struct {
	tx      Tx
	dialect Dialect
}

func (r rawExecutor) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return r.tx.Query(ctx, Rebind(r.dialect, sql), args...)
}

func (r rawExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return r.tx.Exec(ctx, Rebind(r.dialect, sql), args...)
}
