// Package app arma las dependencias compartidas por la API y la CLI de administración:
// backend de almacenamiento, estrategia de aislamiento, repositorios y casos de uso.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/zentral/internal/application/auth"
	"github.com/jhoicas/zentral/internal/application/bootstrap"
	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/infrastructure/isolation"
	"github.com/jhoicas/zentral/internal/infrastructure/pdf"
	"github.com/jhoicas/zentral/internal/infrastructure/persistence"
	"github.com/jhoicas/zentral/internal/infrastructure/postgres"
	"github.com/jhoicas/zentral/internal/infrastructure/schema"
	"github.com/jhoicas/zentral/internal/infrastructure/sqlite"
	"github.com/jhoicas/zentral/pkg/config"
	"github.com/jhoicas/zentral/pkg/logger"
)

// Container agrupa lo construido a partir de la configuración.
type Container struct {
	Store   *datastore.Store
	Schema  schema.Definition
	Metrics *isolation.Metrics

	Companies *persistence.CompanyRepo
	Users     *persistence.UserRepo
	Roles     *persistence.CompanyRoleRepo

	Permissions *usecase.PermissionService
	CompanyUC   *usecase.CompanyUseCase
	ProductUC   *usecase.ProductUseCase
	CustomerUC  *usecase.CustomerUseCase
	SaleUC      *usecase.SaleUseCase
	UserUC      *usecase.UserUseCase
	AuthUC      *auth.AuthUseCase
	Bootstrap   *bootstrap.Service

	closers []func()
}

// New abre el backend indicado por cfg.DB.Backend y elige la estrategia de aislamiento
// correspondiente. reg puede ser nil (sin métricas registradas).
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, log *logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.Nop()
	}
	c := &Container{Metrics: isolation.NewMetrics(reg)}
	registry := datastore.DefaultRegistry()

	var backend datastore.Backend
	switch cfg.DB.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		backend = postgres.NewBackend(pool)
		c.Schema = schema.NewPostgres(registry)
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.DB.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("conexión a SQLite: %w", err)
		}
		c.closers = append(c.closers, func() { _ = db.Close() })
		backend = sqlite.NewBackend(db)
		c.Schema = schema.NewSQLite()
	default:
		return nil, fmt.Errorf("backend no soportado %q", cfg.DB.Backend)
	}

	enforcer, err := isolation.New(cfg.DB.Backend, registry, c.Metrics, log.Component("isolation"))
	if err != nil {
		c.Close()
		return nil, err
	}
	log.Info().Str("backend", cfg.DB.Backend).Msg("almacenamiento listo")

	c.Store = datastore.NewStore(backend, registry, enforcer)
	c.Companies = persistence.NewCompanyRepository(c.Store)
	c.Users = persistence.NewUserRepository(c.Store)
	c.Roles = persistence.NewCompanyRoleRepository(c.Store)
	products := persistence.NewProductRepository(c.Store)
	customers := persistence.NewCustomerRepository(c.Store)
	sales := persistence.NewSaleRepository(c.Store)

	c.Permissions = usecase.NewPermissionService(c.Users, c.Roles)
	c.CompanyUC = usecase.NewCompanyUseCase(c.Store, c.Companies, c.Users, c.Roles, log.Component("company"))
	c.ProductUC = usecase.NewProductUseCase(c.Store, products)
	c.CustomerUC = usecase.NewCustomerUseCase(customers)
	c.SaleUC = usecase.NewSaleUseCase(c.Store, sales, products, customers, pdf.NewTicketRenderer())
	c.UserUC = usecase.NewUserUseCase(c.Users, c.Permissions)
	c.AuthUC = auth.NewAuthUseCase(c.Users, c.Companies, c.Permissions, auth.JWTConfig{
		Secret:       cfg.JWT.Secret,
		Issuer:       cfg.JWT.Issuer,
		RememberDays: cfg.JWT.RememberDays,
	}, log.Component("auth"))
	c.Bootstrap = bootstrap.NewService(c.Store, c.Schema, c.Companies, c.Users, c.CompanyUC, cfg.Seed, log)
	return c, nil
}

// Close libera las conexiones abiertas.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
