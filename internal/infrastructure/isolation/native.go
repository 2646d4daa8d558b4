package isolation

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/logger"
)

// Variables de sesión que leen las políticas RLS.
const (
	SettingCompanySlug = "app.company_slug"
	SettingCompanyID   = "app.current_company_id"
	SettingIsAdmin     = "app.is_zentral_admin"
	SettingIsLogin     = "app.is_login"
	SettingLoginEmail  = "app.login_email"
)

// pushSQL publica el contexto con alcance de transacción (is_local = true), así una
// conexión reutilizada del pool nunca hereda la empresa de otra solicitud.
var pushSQL = fmt.Sprintf(
	"SELECT set_config('%s', ?, true), set_config('%s', ?, true), set_config('%s', ?, true), set_config('%s', ?, true), set_config('%s', ?, true)",
	SettingCompanySlug, SettingCompanyID, SettingIsAdmin, SettingIsLogin, SettingLoginEmail,
)

// Native publica el contexto de la solicitud en variables de sesión de Postgres que
// consumen las políticas RLS. Las escrituras pasan además por el WriteGuard.
type Native struct {
	writes []datastore.WriteStage
	log    *logger.Logger
}

// NewNative construye la estrategia nativa.
func NewNative(registry *datastore.Registry, metrics *Metrics, log *logger.Logger) *Native {
	return &Native{
		writes: []datastore.WriteStage{NewWriteGuard(registry, metrics, log)},
		log:    log,
	}
}

var _ datastore.Enforcer = (*Native)(nil)

func (n *Native) Name() string { return StrategyNative }

// Arm publica primero los valores preliminares (resolver el contexto puede requerir una
// consulta que ya debe estar acotada) y, una vez resuelta la empresa efectiva, los definitivos.
// Un fallo aborta la unidad de trabajo; nunca se continúa sin contexto.
func (n *Native) Arm(ctx context.Context, sess *datastore.Session) error {
	rc := tenancy.FromContext(ctx)
	if rc == nil {
		return Push(ctx, sess.Raw(), tenancy.Settings{})
	}
	if err := Push(ctx, sess.Raw(), rc.Preliminary()); err != nil {
		return fmt.Errorf("push preliminary settings: %w", err)
	}
	final, err := rc.Settings(ctx)
	if err != nil {
		return err
	}
	if err := Push(ctx, sess.Raw(), final); err != nil {
		return fmt.Errorf("push settings: %w", err)
	}
	if n.log != nil {
		n.log.Debug().Str("company_id", final.TenantID).Bool("admin", final.SuperAdmin).Bool("login", final.Login).Msg("contexto RLS publicado")
	}
	return nil
}

func (n *Native) ReadStages() []datastore.ReadStage   { return nil }
func (n *Native) WriteStages() []datastore.WriteStage { return n.writes }

// Push ejecuta set_config con los valores dados.
func Push(ctx context.Context, exec datastore.Executor, s tenancy.Settings) error {
	ident := ""
	if s.Login {
		ident = s.LoginIdentifier
	}
	_, err := exec.Exec(ctx, pushSQL, s.Slug, s.TenantID, flag(s.SuperAdmin), flag(s.Login), ident)
	return err
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
