package schema_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/infrastructure/schema"
)

type recorder struct {
	execs []string
}

func (r *recorder) Query(context.Context, string, ...any) (datastore.Rows, error) {
	return nil, nil
}

func (r *recorder) Exec(_ context.Context, sql string, _ ...any) (int64, error) {
	r.execs = append(r.execs, sql)
	return 0, nil
}

func TestPostgres_PoliticasForzadasEnCadaTablaConEmpresa(t *testing.T) {
	reg := datastore.DefaultRegistry()
	stmts := strings.Join(schema.NewPostgres(reg).PolicyStatements(), "\n")
	for _, table := range reg.Tables() {
		q := datastore.QuoteIdent(table)
		assert.Contains(t, stmts, "ALTER TABLE "+q+" FORCE ROW LEVEL SECURITY", "tabla %s", table)
		assert.Contains(t, stmts, "CREATE POLICY tenant_isolation ON "+q, "tabla %s", table)
		assert.Contains(t, stmts, "DROP POLICY IF EXISTS tenant_isolation ON "+q, "la recreación debe ser idempotente")
	}
	assert.Contains(t, stmts, `ALTER TABLE "company" FORCE ROW LEVEL SECURITY`)
	assert.Contains(t, stmts, `company_admin_write ON "company" FOR ALL`)
	assert.Contains(t, stmts, `company_access ON "company" FOR SELECT`)
}

func TestPostgres_LoginSoloAmpliaTablaDeUsuarios(t *testing.T) {
	reg := datastore.DefaultRegistry()
	for _, stmt := range schema.NewPostgres(reg).PolicyStatements() {
		if !strings.HasPrefix(stmt, "CREATE POLICY tenant_isolation") {
			continue
		}
		if strings.Contains(stmt, `ON "user"`) {
			assert.Contains(t, stmt, "app.is_login")
			assert.Contains(t, stmt, "app.login_email")
			continue
		}
		assert.NotContains(t, stmt, "app.is_login", stmt)
	}
}

func TestDefinitions_TiposPorBackend(t *testing.T) {
	pg := strings.Join(schema.NewPostgres(datastore.DefaultRegistry()).CreateStatements(), "\n")
	lite := strings.Join(schema.NewSQLite().CreateStatements(), "\n")
	assert.Contains(t, pg, "TIMESTAMPTZ")
	assert.Contains(t, pg, "NUMERIC(14,2)")
	assert.NotContains(t, pg, "{{")
	assert.NotContains(t, lite, "{{")
	assert.NotContains(t, lite, "TIMESTAMPTZ")
	assert.Empty(t, schema.NewSQLite().PolicyStatements())
}

func TestTableNames_HijasAntesQuePadres(t *testing.T) {
	names := schema.TableNames()
	idx := map[string]int{}
	for i, n := range names {
		idx[n] = i
	}
	assert.Less(t, idx[datastore.TableSaleItem], idx[datastore.TableSale])
	assert.Less(t, idx[datastore.TableSaleItem], idx[datastore.TableProduct])
	assert.Less(t, idx[datastore.TableSale], idx[datastore.TableCustomer])
	assert.Len(t, names, len(datastore.DefaultRegistry().Tables()), "todas las tablas con empresa")
}

func TestPostgres_ResetRecreaEsquema(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, schema.NewPostgres(datastore.DefaultRegistry()).Reset(context.Background(), rec))
	require.Len(t, rec.execs, 3)
	assert.Equal(t, "DROP SCHEMA public CASCADE", rec.execs[0])
	assert.Equal(t, "CREATE SCHEMA public", rec.execs[1])
}
