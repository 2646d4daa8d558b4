// Package isolation implementa las dos estrategias de aislamiento entre empresas sobre la
// canalización de datastore: políticas nativas de Postgres (RLS) e intercepción de lecturas
// y escrituras para SQLite.
package isolation

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/logger"
)

// Nombres de estrategia.
const (
	StrategyNative   = "native"
	StrategyEmbedded = "embedded"
)

// New elige la estrategia según el backend configurado. Se llama una vez al arrancar.
func New(backend string, registry *datastore.Registry, metrics *Metrics, log *logger.Logger) (datastore.Enforcer, error) {
	switch backend {
	case "postgres":
		return NewNative(registry, metrics, log), nil
	case "sqlite":
		return NewEmbedded(registry, metrics, log), nil
	default:
		return nil, fmt.Errorf("isolation: backend no soportado %q", backend)
	}
}

// Embedded es la estrategia para backends sin seguridad por filas: resuelve la empresa
// efectiva al abrir la unidad de trabajo y filtra lecturas y escrituras en la aplicación.
type Embedded struct {
	reads  []datastore.ReadStage
	writes []datastore.WriteStage
}

// NewEmbedded construye la estrategia embebida.
func NewEmbedded(registry *datastore.Registry, metrics *Metrics, log *logger.Logger) *Embedded {
	return &Embedded{
		reads:  []datastore.ReadStage{NewReadFilter(registry)},
		writes: []datastore.WriteStage{NewWriteGuard(registry, metrics, log)},
	}
}

var _ datastore.Enforcer = (*Embedded)(nil)

func (e *Embedded) Name() string { return StrategyEmbedded }

// Arm resuelve la empresa efectiva antes de que se ejecute cualquier lectura.
func (e *Embedded) Arm(ctx context.Context, _ *datastore.Session) error {
	rc := tenancy.FromContext(ctx)
	if rc == nil || rc.Bypass() {
		return nil
	}
	_, err := rc.EffectiveTenantID(ctx)
	return err
}

func (e *Embedded) ReadStages() []datastore.ReadStage   { return e.reads }
func (e *Embedded) WriteStages() []datastore.WriteStage { return e.writes }
