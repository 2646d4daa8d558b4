package bootstrap_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/internal/application/bootstrap"
	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/infrastructure/isolation"
	"github.com/jhoicas/zentral/internal/infrastructure/persistence"
	"github.com/jhoicas/zentral/internal/infrastructure/schema"
	"github.com/jhoicas/zentral/internal/infrastructure/sqlite"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

var seed = config.SeedConfig{
	AdminUsername:     "zentra",
	AdminEmail:        "zentra@zentral.local",
	AdminPassword:     "zentra",
	DemoSlug:          "demo",
	DemoName:          "Empresa Demo",
	DemoAdminEmail:    "admin@demo.local",
	DemoAdminPassword: "admin",
}

type env struct {
	svc       *bootstrap.Service
	companies *persistence.CompanyRepo
	users     *persistence.UserRepo
	roles     *persistence.CompanyRoleRepo
}

func newService(t *testing.T, store *datastore.Store) *env {
	t.Helper()
	companies := persistence.NewCompanyRepository(store)
	users := persistence.NewUserRepository(store)
	roles := persistence.NewCompanyRoleRepository(store)
	companyUC := usecase.NewCompanyUseCase(store, companies, users, roles, nil)
	return &env{
		svc:       bootstrap.NewService(store, schema.NewSQLite(), companies, users, companyUC, seed, nil),
		companies: companies,
		users:     users,
		roles:     roles,
	}
}

func sqliteStore(t *testing.T) *datastore.Store {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	reg := datastore.DefaultRegistry()
	enf, err := isolation.New("sqlite", reg, nil, nil)
	require.NoError(t, err)
	return datastore.NewStore(sqlite.NewBackend(db), reg, enf)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bootstrap
// ─────────────────────────────────────────────────────────────────────────────

func TestBootstrap_IdempotenteSobreSQLite(t *testing.T) {
	e := newService(t, sqliteStore(t))
	ctx := context.Background()

	first, err := e.svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.True(t, first.AdminCreated, "la primera ejecución crea el super-admin")
	assert.NotEmpty(t, first.DemoCompanyID, "sin empresas se crea la demo")

	second, err := e.svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.False(t, second.AdminCreated, "la segunda ejecución no duplica el super-admin")
	assert.Empty(t, second.DemoCompanyID, "la segunda ejecución no crea otra empresa")

	sys := tenancy.SystemContext(ctx)
	n, err := e.companies.Count(sys)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	demo, err := e.companies.GetBySlug(sys, "demo")
	require.NoError(t, err)
	require.NotNil(t, demo)

	roles, err := e.roles.List(tenancy.TenantContext(ctx, demo.ID))
	require.NoError(t, err)
	assert.Len(t, roles, len(entity.DefaultRolePermissions()), "la empresa demo recibe los roles por defecto")

	admin, err := e.users.FindSuperAdmin(sys)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Empty(t, admin.CompanyID)
	assert.Equal(t, "zentra", admin.Username)

	demoAdmin, err := e.users.GetByEmail(tenancy.TenantContext(ctx, demo.ID), "admin@demo.local")
	require.NoError(t, err)
	require.NotNil(t, demoAdmin)
	assert.Equal(t, entity.RoleCompanyAdmin, demoAdmin.Role)
}

func TestBootstrap_NoCreaDemoSiYaHayEmpresas(t *testing.T) {
	store := sqliteStore(t)
	e := newService(t, store)
	ctx := context.Background()
	_, err := e.svc.Bootstrap(ctx)
	require.NoError(t, err)

	sys := tenancy.SystemContext(ctx)
	demo, err := e.companies.GetBySlug(sys, "demo")
	require.NoError(t, err)
	require.NoError(t, e.companies.Delete(sys, demo.ID))
	require.NoError(t, e.companies.Create(sys, &entity.Company{
		ID: "co-x", Name: "Otra", Slug: "otra", Plan: "basic", Status: entity.CompanyStatusActive, CreatedAt: time.Now(),
	}))

	res, err := e.svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.DemoCompanyID)
	got, err := e.companies.GetBySlug(sys, "demo")
	require.NoError(t, err)
	assert.Nil(t, got, "con empresas existentes no se recrea la demo")
}

func TestBootstrap_LiberaEmailOcupadoPorOtroUsuario(t *testing.T) {
	store := sqliteStore(t)
	e := newService(t, store)
	ctx := context.Background()
	sys := tenancy.SystemContext(ctx)

	// Esquema previo con un usuario de empresa que ya usa el email del super-admin.
	require.NoError(t, store.Run(sys, func(ctx context.Context, sess *datastore.Session) error {
		for _, stmt := range schema.NewSQLite().CreateStatements() {
			if _, err := sess.Raw().Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, e.companies.Create(sys, &entity.Company{
		ID: "co-1", Name: "Uno", Slug: "uno", Plan: "basic", Status: entity.CompanyStatusActive, CreatedAt: time.Now(),
	}))
	require.NoError(t, e.users.Create(sys, &entity.User{
		ID: "u-1", CompanyID: "co-1", Username: "otro", Email: "zentra@zentral.local",
		Role: entity.RoleAdmin, PasswordHash: "h", Active: true, CreatedAt: time.Now(),
	}))

	res, err := e.svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.True(t, res.AdminCreated)
	assert.Equal(t, "u-1", res.ConflictMoved)
	assert.Empty(t, res.DemoCompanyID)

	moved, err := e.users.GetByID(sys, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "conflict_u-1@zentral.local", moved.Email)
	admin, err := e.users.GetByEmail(sys, "zentra@zentral.local")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsSuperAdmin())
}

// ─────────────────────────────────────────────────────────────────────────────
// Reset
// ─────────────────────────────────────────────────────────────────────────────

func mockService(t *testing.T) (*bootstrap.Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	reg := datastore.DefaultRegistry()
	enf, err := isolation.New("sqlite", reg, nil, nil)
	require.NoError(t, err)
	store := datastore.NewStore(sqlite.NewBackend(db), reg, enf)
	e := newService(t, store)
	return e.svc, mock
}

func TestReset_SinConfirmacionNoEjecutaNada(t *testing.T) {
	cases := []config.ResetConfig{
		{},
		{Enabled: true},
		{Enabled: true, Confirm: "yes"},
		{Confirm: "YES"},
	}
	for _, guard := range cases {
		svc, mock := mockService(t)
		err := svc.Reset(context.Background(), guard)
		assert.ErrorIs(t, err, domain.ErrResetNotConfirmed, "guard=%+v", guard)
		assert.NoError(t, mock.ExpectationsWereMet(), "no debe tocarse la base sin confirmación")
	}
}

func TestReset_ConfirmadoEliminaTablasEnOrdenInverso(t *testing.T) {
	svc, mock := mockService(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM sqlite_master`)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("company").AddRow("product"))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "product"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "company"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, svc.Reset(context.Background(), config.ResetConfig{Enabled: true, Confirm: "YES"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
