package isolation

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/logger"
)

// WriteGuard valida las escrituras pendientes contra la empresa efectiva: sella la empresa
// en inserciones sin ella y rechaza cualquier inserción, actualización o borrado de otra
// empresa. Las escrituras sobre company quedan reservadas a super-admin. No tiene excepción
// de login. Se omite para super-admin sin suplantación.
type WriteGuard struct {
	registry *datastore.Registry
	metrics  *Metrics
	log      *logger.Logger
}

// NewWriteGuard construye el guarda de escritura.
func NewWriteGuard(registry *datastore.Registry, metrics *Metrics, log *logger.Logger) *WriteGuard {
	return &WriteGuard{registry: registry, metrics: metrics, log: log}
}

var _ datastore.WriteStage = (*WriteGuard)(nil)

// BeforeWrite implementa datastore.WriteStage.
func (g *WriteGuard) BeforeWrite(ctx context.Context, changes []*datastore.Change) error {
	rc := tenancy.FromContext(ctx)
	if rc != nil && rc.Bypass() {
		return nil
	}
	cid := ""
	if rc != nil {
		id, err := rc.EffectiveTenantID(ctx)
		if err != nil {
			return err
		}
		cid = id
	}
	for _, ch := range changes {
		if ch.Table == datastore.TableCompany {
			err := fmt.Errorf("%s %s: %w", ch.Kind, ch.Table, domain.ErrForbidden)
			g.reject(ch, err)
			return err
		}
		ent, ok := g.registry.Lookup(ch.Table)
		if !ok {
			continue
		}
		if cid == "" {
			return fmt.Errorf("%s %s: %w", ch.Kind, ch.Table, domain.ErrNoTenant)
		}
		if err := g.check(ent, ch, cid); err != nil {
			g.reject(ch, err)
			return err
		}
	}
	return nil
}

func (g *WriteGuard) reject(ch *datastore.Change, err error) {
	g.metrics.CrossTenantRejected(ch.Kind.String(), ch.Table)
	if g.log != nil {
		g.log.Warn().Err(err).Str("table", ch.Table).Str("op", ch.Kind.String()).Msg("escritura entre empresas bloqueada")
	}
}

func (g *WriteGuard) check(ent datastore.Entity, ch *datastore.Change, cid string) error {
	col := ent.TenantColumn
	current := rowTenant(ent, ch)
	switch ch.Kind {
	case datastore.Insert:
		if current == "" {
			if ch.Values == nil {
				ch.Values = map[string]any{}
			}
			ch.Values[col] = cid
			if p, ok := ent.TenantOf(ch.Row); ok {
				*p = cid
			}
			return nil
		}
		if current != cid {
			return &domain.CrossTenantError{Op: "insert", Table: ch.Table, RowTenant: current, EffectiveTenant: cid}
		}
	case datastore.Update, datastore.Delete:
		if current != "" && current != cid {
			return &domain.CrossTenantError{Op: ch.Kind.String(), Table: ch.Table, RowTenant: current, EffectiveTenant: cid}
		}
		if ch.Kind == datastore.Update {
			delete(ch.Values, col)
		}
		ch.Where = append(ch.Where, datastore.Where(datastore.QuoteIdent(col)+" = ?", cid))
	}
	return nil
}

// rowTenant obtiene la empresa actual de la fila: del accesor tipado, de la clave cuando
// la clave es la columna de empresa, o de los valores de la inserción.
func rowTenant(ent datastore.Entity, ch *datastore.Change) string {
	if p, ok := ent.TenantOf(ch.Row); ok {
		return *p
	}
	if ch.KeyCol == ent.TenantColumn {
		if s, ok := ch.KeyValue.(string); ok {
			return s
		}
	}
	if v, ok := ch.Values[ent.TenantColumn]; ok {
		switch s := v.(type) {
		case string:
			return s
		case *string:
			if s != nil {
				return *s
			}
		}
	}
	return ""
}
