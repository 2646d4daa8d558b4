package isolation

import (
	"context"
	"strings"

	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/tenancy"
)

// ReadFilter agrega el filtro de empresa a cada fuente con alcance de tenant de una consulta:
// WHERE para la fuente principal, ON para los joins y recursión en subconsultas.
// Sin empresa efectiva y sin bypass, las fuentes con alcance quedan vacías (1 = 0).
type ReadFilter struct {
	registry *datastore.Registry
}

// NewReadFilter construye el filtro de lectura.
func NewReadFilter(registry *datastore.Registry) *ReadFilter {
	return &ReadFilter{registry: registry}
}

var _ datastore.ReadStage = (*ReadFilter)(nil)

type scope struct {
	tenantID   string
	login      bool
	identifier string
}

// BeforeRead implementa datastore.ReadStage.
func (f *ReadFilter) BeforeRead(ctx context.Context, q *datastore.Query) error {
	if q.Guarded() {
		return nil
	}
	rc := tenancy.FromContext(ctx)
	if rc != nil && rc.Bypass() {
		q.MarkGuarded()
		return nil
	}
	var sc scope
	if rc != nil {
		id, err := rc.EffectiveTenantID(ctx)
		if err != nil {
			return err
		}
		sc.tenantID = id
		sc.login, sc.identifier = rc.Login()
	}
	f.apply(q, sc)
	return nil
}

func (f *ReadFilter) apply(q *datastore.Query, sc scope) {
	if q.Guarded() {
		return
	}
	if p, ok := f.sourcePredicate(&q.From, sc); ok {
		q.Where = append(q.Where, p)
	}
	for i := range q.Joins {
		j := &q.Joins[i]
		if p, ok := f.sourcePredicate(&j.Source, sc); ok {
			j.On = append(j.On, p)
		}
		f.applySubqueries(j.On, sc)
	}
	f.applySubqueries(q.Where, sc)
	q.MarkGuarded()
}

// applySubqueries filtra las subconsultas IN de WHERE y de las condiciones ON.
func (f *ReadFilter) applySubqueries(preds []datastore.Predicate, sc scope) {
	for _, p := range preds {
		if p.In != nil {
			f.apply(p.In, sc)
		}
	}
}

func (f *ReadFilter) sourcePredicate(src *datastore.Source, sc scope) (datastore.Predicate, bool) {
	if src.Sub != nil {
		f.apply(src.Sub, sc)
		return datastore.Predicate{}, false
	}
	ent, ok := f.registry.Lookup(src.Table)
	if !ok {
		return datastore.Predicate{}, false
	}
	ref := src.Ref()
	col := ref + "." + datastore.QuoteIdent(ent.TenantColumn)
	if ent.Principal && sc.login && sc.identifier != "" {
		return loginPredicate(ref, col, sc), true
	}
	if sc.tenantID == "" {
		return datastore.Where("1 = 0"), true
	}
	return datastore.Where(col+" = ?", sc.tenantID), true
}

// loginPredicate amplía la visibilidad de la tabla de usuarios por identificador de acceso.
func loginPredicate(ref, col string, sc scope) datastore.Predicate {
	var parts []string
	var args []any
	if sc.tenantID != "" {
		parts = append(parts, col+" = ?")
		args = append(args, sc.tenantID)
	}
	parts = append(parts,
		"lower("+ref+".\"email\") = ?",
		"lower("+ref+".\"username\") = ?",
		"("+col+" IS NULL AND "+ref+".\"role\" = ?)",
	)
	args = append(args, sc.identifier, sc.identifier, entity.RoleSuperAdmin)
	return datastore.Where(strings.Join(parts, " OR "), args...)
}
