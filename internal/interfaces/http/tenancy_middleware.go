package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/infrastructure/isolation"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/logger"
)

// Locals keys.
const (
	LocalScriptRoot     = "script_root"
	LocalIdentity       = "identity"
	LocalRequestContext = "tenant_request_context"
)

// PrincipalRestorer valida la cookie de "recordarme". Lo implementa *auth.AuthUseCase.
type PrincipalRestorer interface {
	RestorePrincipal(ctx context.Context, token string) (*tenancy.Principal, error)
}

// userLookup es el contrato mínimo del guard de principal. Lo implementa el repositorio de usuarios.
type userLookup interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// TenantPrefix reescribe /c/<slug>/<resto> a /<resto> antes del enrutado y registra el
// script root /c/<slug> en locals.
func TenantPrefix() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rw := tenancy.RewritePrefix(c.Path())
		if rw.ScriptRoot != "" {
			c.Locals(LocalScriptRoot, rw.ScriptRoot)
			c.Path(rw.Path)
		}
		return c.Next()
	}
}

// ScriptRoot devuelve el prefijo /c/<slug> de la solicitud o "".
func ScriptRoot(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalScriptRoot).(string)
	return s
}

// RequestContextConfig dependencias del middleware de contexto de tenant.
type RequestContextConfig struct {
	Sessions *session.Store
	Lookup   tenancy.TenantLookup
	Restorer PrincipalRestorer // opcional
	Metrics  *isolation.Metrics
	Log      *logger.Logger
}

// RequestContext construye la identidad de sesión y el contexto de tenant de la solicitud y
// los deja en c.UserContext(). Persiste las mutaciones de sesión al terminar.
func RequestContext(cfg RequestContextConfig) fiber.Handler {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		id, err := LoadSessionIdentity(c, cfg.Sessions)
		if err != nil {
			return err
		}
		if id.UserID() == "" && cfg.Restorer != nil {
			if tok := c.Cookies(RememberCookie); tok != "" {
				p, err := cfg.Restorer.RestorePrincipal(c.UserContext(), tok)
				if err != nil {
					log.Debug().Err(err).Msg("cookie de recordarme descartada")
					c.ClearCookie(RememberCookie)
				} else {
					slug, err := principalSlug(c.UserContext(), cfg.Lookup, p)
					if err != nil {
						return err
					}
					id.Restore(p, slug)
				}
			}
		}

		rc := tenancy.NewRequestContext(id, tenancy.Signals{
			ScriptRoot: ScriptRoot(c),
			Company:    c.Query("company"),
			Host:       c.Hostname(),
		}, cfg.Lookup)
		c.Locals(LocalIdentity, id)
		c.Locals(LocalRequestContext, rc)
		c.SetUserContext(tenancy.WithRequestContext(c.UserContext(), rc))

		err = c.Next()
		if rc.Resolved() {
			cfg.Metrics.TenantResolved(string(rc.Source()))
		}
		if cerr := id.Commit(); cerr != nil {
			log.Error().Err(cerr).Msg("guardar sesión")
			if err == nil {
				err = cerr
			}
		}
		return err
	}
}

// principalSlug devuelve el slug de la empresa del principal, consultada dentro de esa empresa.
func principalSlug(ctx context.Context, lookup tenancy.TenantLookup, p *tenancy.Principal) (string, error) {
	if lookup == nil || p.TenantID == "" {
		return "", nil
	}
	company, err := lookup.FindByID(tenancy.TenantContext(ctx, p.TenantID), p.TenantID)
	if err != nil || company == nil {
		return "", err
	}
	return company.Slug, nil
}

// Identity devuelve la identidad de sesión de la solicitud; nunca nil.
func Identity(c *fiber.Ctx) *SessionIdentity {
	if id, ok := c.Locals(LocalIdentity).(*SessionIdentity); ok {
		return id
	}
	return &SessionIdentity{}
}

// TenantContext devuelve el contexto de tenant de la solicitud o nil.
func TenantContext(c *fiber.Ctx) *tenancy.RequestContext {
	rc, _ := c.Locals(LocalRequestContext).(*tenancy.RequestContext)
	return rc
}

// GetUserID devuelve el usuario autenticado (sesión o "recordarme").
func GetUserID(c *fiber.Ctx) string { return Identity(c).UserID() }

// GetRole devuelve el rol del usuario autenticado.
func GetRole(c *fiber.Ctx) string { return Identity(c).Role() }

// DefaultExempt exime de los guards de ubicación y pausa las rutas operativas.
func DefaultExempt(path string) bool { return tenancy.DefaultExempt(path) }

// PrincipalGuard limpia la sesión cuando el usuario autenticado ya no es visible (borrado,
// inactivo o fuera de su empresa) y lo envía al login canónico; las rutas JSON reciben 401.
func PrincipalGuard(users userLookup, log *logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		id := Identity(c)
		uid := id.UserID()
		if uid == "" {
			return c.Next()
		}
		ctx := c.UserContext()
		if id.IsSuperAdmin() {
			ctx = tenancy.SystemContext(ctx)
		}
		u, err := users.GetByID(ctx, uid)
		if err != nil {
			return err
		}
		if u != nil && u.Active {
			return c.Next()
		}
		log.Warn().Str("user_id", uid).Msg("principal no visible, sesión limpiada")
		login := "/auth/login"
		if slug := id.CompanySlug(); slug != "" {
			login = tenancy.PrefixSegment + slug + login
		}
		_ = id.ClearTenantSessionState()
		c.ClearCookie(RememberCookie)
		if wantsJSON(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody("UNAUTHORIZED", "sesión inválida", login))
		}
		return c.Redirect(login, fiber.StatusFound)
	}
}

// CanonicalPlacement redirige a un usuario de empresa al prefijo de su propia empresa.
func CanonicalPlacement(exempt tenancy.ExemptFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := Identity(c)
		target, status, ok := tenancy.CanonicalRedirect(tenancy.Placement{
			Method:        c.Method(),
			Path:          c.Path(),
			RawQuery:      string(c.Request().URI().QueryString()),
			ScriptRoot:    ScriptRoot(c),
			Authenticated: id.Authenticated(),
			SuperAdmin:    id.IsSuperAdmin(),
			SessionSlug:   id.CompanySlug(),
		}, exempt)
		if ok {
			return c.Redirect(target, status)
		}
		return c.Next()
	}
}

// PausedGuard rechaza con 403 las solicitudes acotadas a una empresa pausada. Los
// super-admins quedan exentos.
func PausedGuard(exempt tenancy.ExemptFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := TenantContext(c)
		if rc == nil || Identity(c).IsSuperAdmin() || (exempt != nil && exempt(c.Path())) {
			return c.Next()
		}
		company, err := rc.Tenant(c.UserContext())
		if err != nil {
			return err
		}
		if company.IsPaused() {
			return domain.ErrCompanyPaused
		}
		return c.Next()
	}
}

// RequestLogger registra cada solicitud con el origen de la empresa efectiva.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		original := c.OriginalURL()
		if err := c.Next(); err != nil {
			// El manejador de errores se aplica aquí para registrar el status final.
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			logRequest(log, c, original, start, err)
			return nil
		}
		logRequest(log, c, original, start, nil)
		return nil
	}
}

func logRequest(log *logger.Logger, c *fiber.Ctx, original string, start time.Time, err error) {
	source := string(tenancy.SourceNone)
	if rc := TenantContext(c); rc != nil {
		source = string(rc.Source())
	}
	status := c.Response().StatusCode()
	ev := log.Info()
	if err != nil || status >= fiber.StatusInternalServerError {
		ev = log.Warn().Err(err)
	}
	ev.Str("method", c.Method()).
		Str("url", original).
		Str("script_root", ScriptRoot(c)).
		Str("tenant_source", source).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("request")
}

// wantsJSON informa si la respuesta de error debe ser JSON.
func wantsJSON(c *fiber.Ctx) bool {
	p := c.Path()
	for _, prefix := range []string{"/api", "/auth", "/superadmin"} {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}
