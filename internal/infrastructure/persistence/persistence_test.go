package persistence_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/infrastructure/isolation"
	"github.com/jhoicas/zentral/internal/infrastructure/persistence"
	"github.com/jhoicas/zentral/internal/infrastructure/schema"
	"github.com/jhoicas/zentral/internal/infrastructure/sqlite"
	"github.com/jhoicas/zentral/internal/tenancy"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixture: SQLite en memoria con la estrategia embebida
// ─────────────────────────────────────────────────────────────────────────────

type fixture struct {
	store     *datastore.Store
	metrics   *isolation.Metrics
	companies *persistence.CompanyRepo
	users     *persistence.UserRepo
	products  *persistence.ProductRepo
	customers *persistence.CustomerRepo
	sales     *persistence.SaleRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range schema.NewSQLite().CreateStatements() {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	reg := datastore.DefaultRegistry()
	m := isolation.NewMetrics(prometheus.NewRegistry())
	enf, err := isolation.New("sqlite", reg, m, nil)
	require.NoError(t, err)
	store := datastore.NewStore(sqlite.NewBackend(db), reg, enf)
	return &fixture{
		store:     store,
		metrics:   m,
		companies: persistence.NewCompanyRepository(store),
		users:     persistence.NewUserRepository(store),
		products:  persistence.NewProductRepository(store),
		customers: persistence.NewCustomerRepository(store),
		sales:     persistence.NewSaleRepository(store),
	}
}

func (f *fixture) seedCompany(t *testing.T, id, slug string) *entity.Company {
	t.Helper()
	c := &entity.Company{ID: id, Name: "Empresa " + slug, Slug: slug, Plan: "basic", Status: entity.CompanyStatusActive, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.companies.Create(tenancy.SystemContext(context.Background()), c))
	return c
}

func (f *fixture) seedProducts(t *testing.T, companyID string, n int) []*entity.Product {
	t.Helper()
	ctx := tenancy.TenantContext(context.Background(), companyID)
	out := make([]*entity.Product, 0, n)
	for i := 0; i < n; i++ {
		p := &entity.Product{
			ID:        fmt.Sprintf("%s-p%02d", companyID, i),
			SKU:       fmt.Sprintf("SKU-%02d", i),
			Name:      fmt.Sprintf("Producto %02d", i),
			Price:     decimal.NewFromInt(int64(1000 + i)),
			Stock:     decimal.NewFromInt(5),
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, f.products.Create(ctx, p))
		out = append(out, p)
	}
	return out
}

func anonymous() context.Context {
	return tenancy.WithRequestContext(context.Background(), tenancy.NewRequestContext(nil, tenancy.Signals{}, nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Lecturas
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepo_ListaSoloEmpresaEfectiva(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")
	f.seedProducts(t, "co-1", 3)
	f.seedProducts(t, "co-2", 10)

	ctx := tenancy.TenantContext(context.Background(), "co-1")
	list, err := f.products.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3, "co-1 solo debe ver sus productos")
	for _, p := range list {
		assert.Equal(t, "co-1", p.CompanyID)
	}
	n, err := f.products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := f.products.Count(tenancy.SystemContext(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, 13, all, "super-admin sin suplantación ve todas las empresas")
}

func TestProductRepo_GetByIDDeOtraEmpresaDevuelveNil(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")
	ps := f.seedProducts(t, "co-2", 1)

	got, err := f.products.GetByID(tenancy.TenantContext(context.Background(), "co-1"), ps[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got, "una fila de otra empresa no debe ser visible")
}

func TestProductRepo_SinEmpresaNoVeNada(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedProducts(t, "co-1", 2)

	list, err := f.products.List(anonymous(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list, "sin empresa efectiva la lectura debe quedar vacía")
}

func TestProductRepo_SuplantacionVeSoloEmpresaSuplantada(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")
	f.seedProducts(t, "co-1", 3)
	f.seedProducts(t, "co-2", 10)

	rc := tenancy.NewRequestContext(tenancy.StaticIdentity{SuperAdmin: true, Impersonated: "co-2"}, tenancy.Signals{}, nil)
	n, err := f.products.Count(tenancy.WithRequestContext(context.Background(), rc))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, tenancy.SourceImpersonation, rc.Source())
}

// ─────────────────────────────────────────────────────────────────────────────
// Escrituras
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepo_CreateSellaEmpresaEfectiva(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	ps := f.seedProducts(t, "co-1", 1)
	assert.Equal(t, "co-1", ps[0].CompanyID, "la inserción sin empresa debe quedar sellada")
}

func TestProductRepo_CreateEnOtraEmpresaRechazado(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")

	p := &entity.Product{ID: "x", CompanyID: "co-2", SKU: "X", Name: "X", CreatedAt: time.Now()}
	err := f.products.Create(tenancy.TenantContext(context.Background(), "co-1"), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCrossTenant)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rejections().WithLabelValues("insert", "product")))

	n, err := f.products.Count(tenancy.SystemContext(context.Background()))
	require.NoError(t, err)
	assert.Zero(t, n, "la transacción rechazada no debe dejar filas")
}

func TestProductRepo_CreateSinEmpresaFalla(t *testing.T) {
	f := newFixture(t)
	err := f.products.Create(anonymous(), &entity.Product{ID: "x", SKU: "X", Name: "X", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrNoTenant)
}

func TestSaleRepo_UpdateDeOtraEmpresaRechazadoYFilaIntacta(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")
	ps := f.seedProducts(t, "co-2", 1)

	ctx2 := tenancy.TenantContext(context.Background(), "co-2")
	sale := &entity.Sale{
		ID: "s-1", TicketNumber: 1, Date: time.Now().UTC(), Notes: "original", CreatedAt: time.Now().UTC(),
		Items: []*entity.SaleItem{{ID: "i-1", ProductID: ps[0].ID, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(500)}},
	}
	sale.RecalculateTotal()
	require.NoError(t, f.sales.Create(ctx2, sale))
	assert.Equal(t, "co-2", sale.Items[0].CompanyID, "las líneas heredan la empresa de la cabecera")

	tampered := &entity.Sale{ID: "s-1", CompanyID: "co-2", Notes: "alterada"}
	err := f.sales.Update(tenancy.TenantContext(context.Background(), "co-1"), tampered)
	assert.ErrorIs(t, err, domain.ErrCrossTenant)

	// Sin empresa en la fila, el filtro de clave impide tocar la venta ajena.
	blind := &entity.Sale{ID: "s-1", Notes: "alterada"}
	err = f.sales.Update(tenancy.TenantContext(context.Background(), "co-1"), blind)
	assert.ErrorIs(t, err, domain.ErrNotFound, "sin filas afectadas equivale a no encontrada")
	assert.NotErrorIs(t, err, domain.ErrCrossTenant)

	got, err := f.sales.GetByID(ctx2, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "original", got.Notes, "la venta no debe cambiar")
	require.Len(t, got.Items, 1)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(1000)))
}

func TestProductRepo_EscrituraCiegaEnOtraEmpresaNoEncontrada(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")
	ps := f.seedProducts(t, "co-2", 1)
	ctx1 := tenancy.TenantContext(context.Background(), "co-1")

	blind := &entity.Product{ID: ps[0].ID, SKU: "X", Name: "alterado", Price: decimal.NewFromInt(1)}
	assert.ErrorIs(t, f.products.Update(ctx1, blind), domain.ErrNotFound)
	assert.ErrorIs(t, f.products.Delete(ctx1, &entity.Product{ID: ps[0].ID}), domain.ErrNotFound)
	assert.ErrorIs(t, f.products.Delete(ctx1, &entity.Product{ID: "no-existe"}), domain.ErrNotFound)

	got, err := f.products.GetByID(tenancy.TenantContext(context.Background(), "co-2"), ps[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got, "la fila ajena no se borra")
	assert.Equal(t, ps[0].Name, got.Name)
}

func TestSaleRepo_NextTicketNumberPorEmpresa(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")
	ctx1 := tenancy.TenantContext(context.Background(), "co-1")
	ctx2 := tenancy.TenantContext(context.Background(), "co-2")

	for i := int64(1); i <= 3; i++ {
		n, err := f.sales.NextTicketNumber(ctx1)
		require.NoError(t, err)
		require.Equal(t, i, n)
		require.NoError(t, f.sales.Create(ctx1, &entity.Sale{ID: fmt.Sprintf("s-%d", i), TicketNumber: n, Date: time.Now(), CreatedAt: time.Now()}))
	}
	n, err := f.sales.NextTicketNumber(ctx2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "la numeración es independiente por empresa")
}

// ─────────────────────────────────────────────────────────────────────────────
// Usuarios y login
// ─────────────────────────────────────────────────────────────────────────────

func TestUserRepo_AmpliacionDeLoginSoloLectura(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")
	now := time.Now().UTC()
	require.NoError(t, f.users.Create(tenancy.SystemContext(context.Background()),
		&entity.User{ID: "root", Username: "zentra", Role: entity.RoleSuperAdmin, PasswordHash: "h", Active: true, CreatedAt: now}))
	require.NoError(t, f.users.Create(tenancy.TenantContext(context.Background(), "co-1"),
		&entity.User{ID: "u1", Username: "ana", Email: "Ana@Uno.local", Role: entity.RoleAdmin, PasswordHash: "h", Active: true, CreatedAt: now}))
	require.NoError(t, f.users.Create(tenancy.TenantContext(context.Background(), "co-2"),
		&entity.User{ID: "u2", Username: "ana", Role: entity.RoleVendedor, PasswordHash: "h", Active: true, CreatedAt: now}))

	rc := tenancy.NewRequestContext(nil, tenancy.Signals{}, nil)
	ctx := tenancy.WithRequestContext(context.Background(), rc)

	found, err := f.users.FindByLoginIdentifier(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, found, "sin login marcado no hay ampliación")

	rc.BeginLogin("ANA")
	found, err = f.users.FindByLoginIdentifier(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, found, 2, "el login ve el username en todas las empresas")

	found, err = f.users.FindByLoginIdentifier(ctx, "zentra")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "root", found[0].ID)
	assert.Empty(t, found[0].CompanyID)

	products, err := f.products.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, products, "la ampliación solo aplica a la tabla de usuarios")

	found[0].DisplayName = "cambio"
	err = f.users.Update(ctx, found[0])
	assert.ErrorIs(t, err, domain.ErrNoTenant, "el login no habilita escrituras")

	rc.EndLogin()
	found, err = f.users.FindByLoginIdentifier(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUserRepo_PermisosPersistidos(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	ctx := tenancy.TenantContext(context.Background(), "co-1")
	u := &entity.User{ID: "u1", Username: "ana", Role: entity.RoleVendedor, PasswordHash: "h", Active: true,
		Permissions: map[string]bool{entity.ModuleSales: true, entity.ModuleReports: false}, CreatedAt: time.Now()}
	require.NoError(t, f.users.Create(ctx, u))

	got, err := f.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "co-1", got.CompanyID)
	assert.True(t, got.Permissions[entity.ModuleSales])
	assert.False(t, got.Permissions[entity.ModuleReports])
}

// ─────────────────────────────────────────────────────────────────────────────
// Empresas
// ─────────────────────────────────────────────────────────────────────────────

func TestCompanyRepo_EscrituraSoloSuperAdmin(t *testing.T) {
	f := newFixture(t)
	c := f.seedCompany(t, "co-1", "uno")
	c.Name = "Otro nombre"
	err := f.companies.Update(tenancy.TenantContext(context.Background(), "co-1"), c)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.companies.Update(tenancy.SystemContext(context.Background()), c))
	got, err := f.companies.GetBySlug(context.Background(), "uno")
	require.NoError(t, err)
	assert.Equal(t, "Otro nombre", got.Name)
}

func TestCompanyRepo_DeleteEnCascada(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, "co-1", "uno")
	f.seedCompany(t, "co-2", "dos")
	f.seedProducts(t, "co-1", 3)
	f.seedProducts(t, "co-2", 4)
	sys := tenancy.SystemContext(context.Background())

	require.NoError(t, f.companies.Delete(sys, "co-2"))

	n, err := f.products.Count(sys)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	got, err := f.companies.GetByID(sys, "co-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCompanyRepo_ListPauseDue(t *testing.T) {
	f := newFixture(t)
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	sys := tenancy.SystemContext(context.Background())
	due := f.seedCompany(t, "co-1", "uno")
	due.PauseScheduledFor = &past
	require.NoError(t, f.companies.Update(sys, due))
	later := f.seedCompany(t, "co-2", "dos")
	later.SubscriptionEndsAt = &future
	require.NoError(t, f.companies.Update(sys, later))

	list, err := f.companies.ListPauseDue(sys, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "co-1", list[0].ID)
}
