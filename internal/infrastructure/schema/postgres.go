package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

var postgresTypes = strings.NewReplacer(
	"{{ts}}", "TIMESTAMPTZ",
	"{{money}}", "NUMERIC(14,2)",
	"{{bigint}}", "BIGINT",
	"{{bool}}", "BOOLEAN",
)

// Postgres es el esquema con políticas RLS sobre las variables app.*.
type Postgres struct {
	registry *datastore.Registry
}

// NewPostgres construye el esquema Postgres para las tablas del registro.
func NewPostgres(registry *datastore.Registry) *Postgres {
	return &Postgres{registry: registry}
}

var _ Definition = (*Postgres)(nil)

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) CreateStatements() []string { return render(postgresTypes) }

const (
	isAdmin   = `current_setting('app.is_zentral_admin', true) = '1'`
	ownTenant = `company_id = current_setting('app.current_company_id', true)`
	isLogin   = `current_setting('app.is_login', true) = '1'`
	loginID   = `current_setting('app.login_email', true)`
)

// PolicyStatements habilita y fuerza RLS en cada tabla con alcance de empresa y en company,
// recreando las políticas para que el bootstrap sea idempotente.
func (p *Postgres) PolicyStatements() []string {
	var out []string
	for _, table := range p.registry.Tables() {
		ent, _ := p.registry.Lookup(table)
		ident := datastore.QuoteIdent(table)
		out = append(out,
			fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, ident),
			fmt.Sprintf(`ALTER TABLE %s FORCE ROW LEVEL SECURITY`, ident),
			fmt.Sprintf(`DROP POLICY IF EXISTS tenant_isolation ON %s`, ident),
		)
		using := isAdmin + ` OR ` + ownTenant
		if ent.Principal {
			using = isAdmin + ` OR (company_id IS NOT NULL AND ` + ownTenant + `) OR (` + isLogin + ` AND (` +
				`(email IS NOT NULL AND lower(email) = ` + loginID + `)` +
				` OR lower(username) = ` + loginID +
				` OR (company_id IS NULL AND role = 'zentral_admin')))`
		}
		out = append(out, fmt.Sprintf(
			`CREATE POLICY tenant_isolation ON %s USING (%s) WITH CHECK (%s OR %s)`,
			ident, using, isAdmin, ownTenant,
		))
	}
	return append(out,
		`ALTER TABLE "company" ENABLE ROW LEVEL SECURITY`,
		`ALTER TABLE "company" FORCE ROW LEVEL SECURITY`,
		`DROP POLICY IF EXISTS company_access ON "company"`,
		`DROP POLICY IF EXISTS company_admin_write ON "company"`,
		`CREATE POLICY company_access ON "company" FOR SELECT USING (`+isAdmin+
			` OR id = current_setting('app.current_company_id', true)`+
			` OR slug = current_setting('app.company_slug', true))`,
		// Las escrituras sobre company quedan solo para super-admin, incluido DELETE.
		`CREATE POLICY company_admin_write ON "company" FOR ALL USING (`+isAdmin+`) WITH CHECK (`+isAdmin+`)`,
	)
}

func (p *Postgres) MarkerStatement() string {
	return `INSERT INTO "system_meta" ("key", "value", "created_at") VALUES ('initialized', '1', now()) ON CONFLICT ("key") DO NOTHING`
}

// Reset elimina el esquema public completo y lo recrea vacío.
func (p *Postgres) Reset(ctx context.Context, exec datastore.Executor) error {
	for _, stmt := range []string{
		`DROP SCHEMA public CASCADE`,
		`CREATE SCHEMA public`,
		`GRANT ALL ON SCHEMA public TO CURRENT_USER`,
	} {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset schema: %w", err)
		}
	}
	return nil
}
