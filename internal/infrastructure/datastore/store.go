package datastore

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/tenancy"
)

// Backend abre transacciones sobre un motor concreto (Postgres o SQLite).
type Backend interface {
	Dialect() Dialect
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// Enforcer es la estrategia de aislamiento activa. Se elige una vez al arrancar.
type Enforcer interface {
	Name() string
	// Arm se ejecuta al abrir cada unidad de trabajo, antes de cualquier acceso de negocio.
	Arm(ctx context.Context, sess *Session) error
	ReadStages() []ReadStage
	WriteStages() []WriteStage
}

// Store abre unidades de trabajo armadas con el enforcer.
type Store struct {
	backend  Backend
	registry *Registry
	enforcer Enforcer
}

// NewStore construye el store.
func NewStore(backend Backend, registry *Registry, enforcer Enforcer) *Store {
	return &Store{backend: backend, registry: registry, enforcer: enforcer}
}

// Registry devuelve el registro de entidades.
func (s *Store) Registry() *Registry { return s.registry }

// Dialect devuelve el dialecto del backend.
func (s *Store) Dialect() Dialect { return s.backend.Dialect() }

// Enforcer devuelve la estrategia de aislamiento activa.
func (s *Store) Enforcer() Enforcer { return s.enforcer }

type sessionKey struct{}

// Run ejecuta fn dentro de una unidad de trabajo: abre transacción, arma el enforcer,
// ejecuta fn, vacía escrituras pendientes y confirma. Cualquier error revierte todo.
// Si ctx ya lleva una sesión abierta, fn se une a ella; cuando ctx trae otro contexto de
// tenant la sesión se rearma para fn y se restaura al terminar.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, sess *Session) error) error {
	if sess, ok := ctx.Value(sessionKey{}).(*Session); ok && sess != nil {
		if sess.scope == tenancy.FromContext(ctx) {
			return fn(ctx, sess)
		}
		return s.rescope(ctx, sess, fn)
	}
	tx, err := s.backend.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sess := &Session{
		tx:       tx,
		dialect:  s.backend.Dialect(),
		registry: s.registry,
		reads:    s.enforcer.ReadStages(),
		writes:   s.enforcer.WriteStages(),
	}
	ctx = context.WithValue(ctx, sessionKey{}, sess)
	if err := s.arm(ctx, sess); err != nil {
		return err
	}
	if err := fn(ctx, sess); err != nil {
		return err
	}
	if err := sess.Flush(ctx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) arm(ctx context.Context, sess *Session) error {
	sess.scope = tenancy.FromContext(ctx)
	if err := s.enforcer.Arm(ctx, sess); err != nil {
		return fmt.Errorf("arm %s isolation: %w", s.enforcer.Name(), err)
	}
	return nil
}

// rescope ejecuta fn en una sesión abierta bajo otro contexto de tenant. Las escrituras
// pendientes se vacían con el contexto que las encoló.
func (s *Store) rescope(ctx context.Context, sess *Session, fn func(ctx context.Context, sess *Session) error) error {
	outer := tenancy.WithRequestContext(ctx, sess.scope)
	if err := sess.Flush(outer); err != nil {
		return err
	}
	err := func() error {
		if err := s.arm(ctx, sess); err != nil {
			return err
		}
		if err := fn(ctx, sess); err != nil {
			return err
		}
		return sess.Flush(ctx)
	}()
	if rerr := s.arm(outer, sess); err == nil {
		err = rerr
	}
	return err
}

// InTx ejecuta fn dentro de una unidad de trabajo; los repositorios llamados con el ctx
// recibido se unen a ella. Implementa el puerto TxRunner de la capa de aplicación.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.Run(ctx, func(ctx context.Context, _ *Session) error { return fn(ctx) })
}
