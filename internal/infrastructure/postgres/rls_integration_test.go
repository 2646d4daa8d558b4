//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/zentral/internal/application/bootstrap"
	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/infrastructure/isolation"
	"github.com/jhoicas/zentral/internal/infrastructure/persistence"
	"github.com/jhoicas/zentral/internal/infrastructure/postgres"
	"github.com/jhoicas/zentral/internal/infrastructure/schema"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Contenedor Postgres con un rol de aplicación sin BYPASSRLS
// ─────────────────────────────────────────────────────────────────────────────

type rlsEnv struct {
	store     *datastore.Store
	companies *usecase.CompanyUseCase
	products  *persistence.ProductRepo
	users     *persistence.UserRepo
	lookup    *persistence.CompanyRepo
	alfa      string
	beta      string
}

func newStore(t *testing.T, pool *pgxpool.Pool) *datastore.Store {
	t.Helper()
	reg := datastore.DefaultRegistry()
	enf, err := isolation.New(config.BackendPostgres, reg, nil, nil)
	require.NoError(t, err)
	return datastore.NewStore(postgres.NewBackend(pool), reg, enf)
}

func setupRLS(t *testing.T) *rlsEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("zentral"),
		tcpostgres.WithUsername("owner"),
		tcpostgres.WithPassword("owner"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("no se pudo iniciar Postgres: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = pgC.Terminate(cleanupCtx)
	})

	ownerURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	ownerPool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: ownerURL, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(ownerPool.Close)

	// El dueño del esquema es superusuario y salta RLS; la app usa un rol sin privilegios.
	_, err = ownerPool.Exec(ctx, `CREATE ROLE zentral_app LOGIN PASSWORD 'app' NOSUPERUSER NOBYPASSRLS`)
	require.NoError(t, err)

	ownerStore := newStore(t, ownerPool)
	svc := bootstrap.NewService(ownerStore, schema.NewPostgres(ownerStore.Registry()),
		persistence.NewCompanyRepository(ownerStore), persistence.NewUserRepository(ownerStore), nil,
		config.SeedConfig{AdminUsername: "zentra", AdminEmail: "zentra@zentral.local", AdminPassword: "zentra"}, nil)
	_, err = svc.Bootstrap(ctx)
	require.NoError(t, err)
	for _, stmt := range []string{
		`GRANT USAGE ON SCHEMA public TO zentral_app`,
		`GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public TO zentral_app`,
		`GRANT USAGE, SELECT ON ALL SEQUENCES IN SCHEMA public TO zentral_app`,
	} {
		_, err = ownerPool.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	appPool, err := postgres.NewPool(ctx, config.DBConfig{
		DatabaseURL: fmt.Sprintf("postgres://zentral_app:app@%s:%s/zentral?sslmode=disable", host, port.Port()),
		MaxConns:    4,
	})
	require.NoError(t, err)
	t.Cleanup(appPool.Close)

	store := newStore(t, appPool)
	env := &rlsEnv{
		store:    store,
		products: persistence.NewProductRepository(store),
		users:    persistence.NewUserRepository(store),
		lookup:   persistence.NewCompanyRepository(store),
	}
	env.companies = usecase.NewCompanyUseCase(store, env.lookup, env.users, persistence.NewCompanyRoleRepository(store), nil)

	sys := tenancy.SystemContext(ctx)
	a, err := env.companies.Create(sys, dto.CreateCompanyRequest{Name: "Alfa", AdminEmail: "ana@alfa.local", AdminPassword: "clave"})
	require.NoError(t, err)
	b, err := env.companies.Create(sys, dto.CreateCompanyRequest{Name: "Beta", AdminEmail: "ana@beta.local", AdminPassword: "clave"})
	require.NoError(t, err)
	env.alfa, env.beta = a.ID, b.ID

	for _, c := range []struct {
		id string
		n  int
	}{{env.alfa, 2}, {env.beta, 3}} {
		tctx := tenancy.TenantContext(ctx, c.id)
		for i := 0; i < c.n; i++ {
			require.NoError(t, env.products.Create(tctx, &entity.Product{
				ID: fmt.Sprintf("%s-p%d", c.id, i), SKU: fmt.Sprintf("SKU-%d", i), Name: "Producto",
				Price: decimal.NewFromInt(10), Stock: decimal.NewFromInt(1), Active: true, CreatedAt: time.Now().UTC(),
			}))
		}
	}
	return env
}

// rawCount cuenta productos con SQL directo: sin etapas de aplicación, solo RLS.
func (e *rlsEnv) rawCount(t *testing.T, ctx context.Context) int {
	t.Helper()
	var n int
	require.NoError(t, e.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		rows, err := sess.Raw().Query(ctx, `SELECT count(*) FROM "product"`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			if err := rows.Scan(&n); err != nil {
				return err
			}
		}
		return rows.Err()
	}))
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Políticas RLS
// ─────────────────────────────────────────────────────────────────────────────

func TestRLS_LecturasAcotadasPorEmpresa(t *testing.T) {
	env := setupRLS(t)
	ctx := context.Background()

	assert.Equal(t, 2, env.rawCount(t, tenancy.TenantContext(ctx, env.alfa)))
	assert.Equal(t, 3, env.rawCount(t, tenancy.TenantContext(ctx, env.beta)))
	assert.Equal(t, 5, env.rawCount(t, tenancy.SystemContext(ctx)), "el super-admin sin suplantación ve todo")
	assert.Equal(t, 0, env.rawCount(t, ctx), "sin contexto no hay filas")

	rc := tenancy.NewRequestContext(tenancy.StaticIdentity{SuperAdmin: true, Impersonated: env.beta}, tenancy.Signals{}, env.lookup)
	assert.Equal(t, 3, env.rawCount(t, tenancy.WithRequestContext(ctx, rc)), "la suplantación acota a la empresa suplantada")
}

func TestRLS_SlugAnonimoResuelveEmpresa(t *testing.T) {
	env := setupRLS(t)
	rc := tenancy.NewRequestContext(nil, tenancy.Signals{ScriptRoot: "/c/beta"}, env.lookup)
	ctx := tenancy.WithRequestContext(context.Background(), rc)

	assert.Equal(t, 3, env.rawCount(t, ctx))
	assert.Equal(t, tenancy.SourceSlug, rc.Source())
}

func TestRLS_EscriturasDeOtraEmpresaBloqueadas(t *testing.T) {
	env := setupRLS(t)
	ctx := tenancy.TenantContext(context.Background(), env.beta)

	var affected int64
	require.NoError(t, env.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		n, err := sess.Raw().Exec(ctx, `UPDATE "product" SET "name" = 'x' WHERE "id" = ?`, env.alfa+"-p0")
		affected = n
		return err
	}))
	assert.Zero(t, affected, "la fila de alfa no es visible para beta")

	err := env.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		_, err := sess.Raw().Exec(ctx,
			`INSERT INTO "product" ("id", "company_id", "sku", "name", "price", "stock", "active", "created_at") VALUES (?, ?, 'X', 'X', 0, 0, true, now())`,
			"intruso", env.alfa)
		return err
	})
	require.Error(t, err, "WITH CHECK rechaza insertar en otra empresa")

	p, err := env.products.GetByID(tenancy.TenantContext(context.Background(), env.alfa), env.alfa+"-p0")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Producto", p.Name)
}

func TestRLS_CompanySoloEscribeSuperAdmin(t *testing.T) {
	env := setupRLS(t)
	ctx := tenancy.TenantContext(context.Background(), env.alfa)

	var affected int64
	require.NoError(t, env.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		n, err := sess.Raw().Exec(ctx, `UPDATE "company" SET "name" = 'x' WHERE "id" = ?`, env.alfa)
		affected = n
		return err
	}))
	assert.Zero(t, affected, "un tenant no modifica ni su propia empresa")

	c, err := env.lookup.FindByID(ctx, env.alfa)
	require.NoError(t, err)
	require.NotNil(t, c, "la empresa propia sí es legible")
	assert.Equal(t, "Alfa", c.Name)

	other, err := env.lookup.FindByID(ctx, env.beta)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestRLS_LoginAmpliaSoloLecturaDeUsuarios(t *testing.T) {
	env := setupRLS(t)
	rc := tenancy.NewRequestContext(nil, tenancy.Signals{}, env.lookup)
	ctx := tenancy.WithRequestContext(context.Background(), rc)

	none, err := env.users.FindByLoginIdentifier(ctx, "ana@alfa.local")
	require.NoError(t, err)
	assert.Empty(t, none, "sin marca de login el usuario no es visible")

	rc.BeginLogin("ana@alfa.local")
	found, err := env.users.FindByLoginIdentifier(ctx, "ana@alfa.local")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, env.alfa, found[0].CompanyID)
	assert.Equal(t, 0, env.rawCount(t, ctx), "la ampliación no alcanza otras tablas")

	u := found[0]
	u.DisplayName = "cambiado"
	assert.Error(t, env.users.Update(ctx, u), "la ampliación de login es solo lectura")
	rc.EndLogin()
}

func TestRLS_ConexionReutilizadaNoHeredaEmpresa(t *testing.T) {
	env := setupRLS(t)
	ctx := context.Background()
	for i := 0; i < 8; i++ {
		assert.Equal(t, 2, env.rawCount(t, tenancy.TenantContext(ctx, env.alfa)))
		assert.Equal(t, 0, env.rawCount(t, ctx), "set_config local no sobrevive a la transacción")
	}
}

func TestRLS_RunAnidadoConOtroContextoRepublicaAjustes(t *testing.T) {
	env := setupRLS(t)
	ctx := tenancy.TenantContext(context.Background(), env.alfa)

	require.NoError(t, env.store.Run(ctx, func(ctx context.Context, _ *datastore.Session) error {
		assert.Equal(t, 2, env.rawCount(t, ctx))
		assert.Equal(t, 3, env.rawCount(t, tenancy.TenantContext(ctx, env.beta)), "la política sigue al contexto interno")
		assert.Equal(t, 5, env.rawCount(t, tenancy.SystemContext(ctx)))
		assert.Equal(t, 2, env.rawCount(t, ctx), "al volver se restauran los ajustes externos")
		return nil
	}))
}
