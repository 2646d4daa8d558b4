package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/config"
)

// Claves de sesión.
const (
	SessionUserID      = "auth_user_id"
	SessionCompanyID   = "auth_company_id"
	SessionCompanySlug = "auth_company_slug"
	SessionSuperAdmin  = "auth_is_zentral_admin"
	SessionRole        = "auth_role"
	SessionImpersonate = "impersonate_company_id"
)

var sessionKeys = []string{SessionUserID, SessionCompanyID, SessionCompanySlug, SessionSuperAdmin, SessionRole, SessionImpersonate}

// Cookies.
const (
	SessionCookie  = "zentral_session"
	RememberCookie = "zentral_remember"
)

// NewSessionStore construye el store de sesiones. storage nil usa memoria del proceso.
func NewSessionStore(cfg config.SessionConfig, storage fiber.Storage) *session.Store {
	exp := time.Duration(cfg.ExpirationHours) * time.Hour
	if exp <= 0 {
		exp = 24 * time.Hour
	}
	sameSite := cfg.CookieSameSite
	if sameSite == "" {
		sameSite = fiber.CookieSameSiteLaxMode
	}
	return session.New(session.Config{
		Storage:        storage,
		Expiration:     exp,
		KeyLookup:      "cookie:" + SessionCookie,
		CookieDomain:   cfg.CookieDomain,
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: sameSite,
	})
}

type sessionState struct {
	userID      string
	companyID   string
	companySlug string
	superAdmin  bool
	role        string
	impersonate string
}

// SessionIdentity implementa tenancy.Identity y tenancy.IdentityMutator sobre la sesión de
// Fiber. Lee una instantánea al inicio de la solicitud; las mutaciones se persisten en Commit.
// fiber libera la sesión al guardarla, por eso no se retiene entre lectura y escritura.
type SessionIdentity struct {
	store     *session.Store
	c         *fiber.Ctx
	state     sessionState
	principal *tenancy.Principal
	// restoredSlug es el slug de la empresa del principal restaurado.
	restoredSlug string

	dirty      bool
	regenerate bool
	destroy    bool
}

var (
	_ tenancy.Identity        = (*SessionIdentity)(nil)
	_ tenancy.IdentityMutator = (*SessionIdentity)(nil)
)

// LoadSessionIdentity lee las claves de sesión de la solicitud.
func LoadSessionIdentity(c *fiber.Ctx, store *session.Store) (*SessionIdentity, error) {
	sess, err := store.Get(c)
	if err != nil {
		return nil, err
	}
	str := func(key string) string {
		s, _ := sess.Get(key).(string)
		return s
	}
	return &SessionIdentity{
		store: store,
		c:     c,
		state: sessionState{
			userID:      str(SessionUserID),
			companyID:   str(SessionCompanyID),
			companySlug: str(SessionCompanySlug),
			superAdmin:  str(SessionSuperAdmin) == "1",
			role:        str(SessionRole),
			impersonate: str(SessionImpersonate),
		},
	}, nil
}

func (s *SessionIdentity) IsSuperAdmin() bool {
	if s.state.userID != "" {
		return s.state.superAdmin
	}
	return s.principal.IsSuperAdmin()
}

func (s *SessionIdentity) HomeTenantID() string { return s.state.companyID }

func (s *SessionIdentity) ImpersonatedTenantID() string { return s.state.impersonate }

// AuthenticatedPrincipal devuelve el principal restaurado desde la cookie de "recordarme".
func (s *SessionIdentity) AuthenticatedPrincipal() *tenancy.Principal { return s.principal }

// UserID es el usuario de la sesión o, en su defecto, el del principal restaurado.
func (s *SessionIdentity) UserID() string {
	if s.state.userID != "" {
		return s.state.userID
	}
	if s.principal != nil {
		return s.principal.ID
	}
	return ""
}

// Role es el rol de la sesión o del principal restaurado.
func (s *SessionIdentity) Role() string {
	if s.state.userID != "" {
		return s.state.role
	}
	if s.principal != nil {
		return s.principal.Role
	}
	return ""
}

// CompanySlug es el slug de la empresa registrado al iniciar sesión o, sin sesión, el de la
// empresa del principal restaurado.
func (s *SessionIdentity) CompanySlug() string {
	if s.state.userID != "" {
		return s.state.companySlug
	}
	return s.restoredSlug
}

// Authenticated informa si hay usuario de sesión o principal restaurado.
func (s *SessionIdentity) Authenticated() bool { return s.UserID() != "" }

// Restore fija el principal restaurado desde la cookie de "recordarme" y el slug de su empresa.
func (s *SessionIdentity) Restore(p *tenancy.Principal, companySlug string) {
	s.principal = p
	s.restoredSlug = companySlug
}

// SetImpersonation solo está permitido a super-admins.
func (s *SessionIdentity) SetImpersonation(tenantID string) error {
	if !s.IsSuperAdmin() {
		return domain.ErrForbidden
	}
	s.state.impersonate = tenantID
	s.dirty = true
	return nil
}

func (s *SessionIdentity) ClearImpersonation() error {
	if s.state.impersonate != "" {
		s.state.impersonate = ""
		s.dirty = true
	}
	return nil
}

// ClearTenantSessionState borra usuario, empresa y suplantación de la sesión.
func (s *SessionIdentity) ClearTenantSessionState() error {
	s.state = sessionState{}
	s.principal = nil
	s.dirty = true
	return nil
}

// Login registra el usuario autenticado con un id de sesión nuevo. Descarta cualquier
// suplantación pendiente.
func (s *SessionIdentity) Login(u *entity.User, company *entity.Company) {
	st := sessionState{
		userID:     u.ID,
		companyID:  u.CompanyID,
		superAdmin: u.IsSuperAdmin(),
		role:       u.Role,
	}
	if company != nil {
		st.companySlug = strings.ToLower(company.Slug)
	}
	s.state = st
	s.principal = nil
	s.dirty = true
	s.regenerate = true
}

// Logout destruye la sesión al final de la solicitud.
func (s *SessionIdentity) Logout() {
	s.state = sessionState{}
	s.principal = nil
	s.destroy = true
}

// Commit persiste las mutaciones pendientes. Se invoca una vez, al terminar la solicitud.
func (s *SessionIdentity) Commit() error {
	if !s.dirty && !s.destroy {
		return nil
	}
	sess, err := s.store.Get(s.c)
	if err != nil {
		return err
	}
	if s.destroy {
		return sess.Destroy()
	}
	if s.regenerate {
		if err := sess.Regenerate(); err != nil {
			return err
		}
	}
	values := map[string]string{
		SessionUserID:      s.state.userID,
		SessionCompanyID:   s.state.companyID,
		SessionCompanySlug: s.state.companySlug,
		SessionRole:        s.state.role,
		SessionImpersonate: s.state.impersonate,
	}
	if s.state.userID != "" {
		values[SessionSuperAdmin] = boolFlag(s.state.superAdmin)
	}
	for _, k := range sessionKeys {
		if v := values[k]; v != "" {
			sess.Set(k, v)
		} else {
			sess.Delete(k)
		}
	}
	s.dirty, s.regenerate = false, false
	return sess.Save()
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
