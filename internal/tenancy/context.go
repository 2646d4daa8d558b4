package tenancy

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/zentral/internal/domain/entity"
)

// TenantLookup es el puerto de lectura de empresas usado durante la resolución.
// Ambos métodos devuelven nil, nil cuando no existe la empresa.
type TenantLookup interface {
	FindBySlug(ctx context.Context, slug string) (*entity.Company, error)
	FindByID(ctx context.Context, id string) (*entity.Company, error)
}

// Source indica de dónde salió la empresa efectiva.
type Source string

const (
	SourceNone          Source = "none"
	SourceAdmin         Source = "admin"
	SourceImpersonation Source = "impersonation"
	SourceSession       Source = "session"
	SourcePrincipal     Source = "principal"
	SourceSlug          Source = "slug"
)

type state int

const (
	unresolved state = iota
	resolving
	resolved
)

// Settings son los valores de contexto que se publican al backend de almacenamiento.
type Settings struct {
	Slug            string
	TenantID        string
	SuperAdmin      bool
	Login           bool
	LoginIdentifier string
}

// RequestContext es el contexto efectivo de una solicitud. Se crea por solicitud,
// se resuelve de forma perezosa y nunca se comparte entre solicitudes.
// No es seguro para uso concurrente: una solicitud se atiende en una sola goroutine.
type RequestContext struct {
	identity Identity
	signals  Signals
	lookup   TenantLookup

	slug      string
	slugReady bool

	idState  state
	tenantID string
	source   Source

	objState state
	tenant   *entity.Company

	login           bool
	loginIdentifier string
}

// NewRequestContext construye el contexto de una solicitud. identity nil equivale a anónimo.
func NewRequestContext(identity Identity, signals Signals, lookup TenantLookup) *RequestContext {
	if identity == nil {
		identity = StaticIdentity{}
	}
	return &RequestContext{identity: identity, signals: signals, lookup: lookup, source: SourceNone}
}

// Identity devuelve la identidad de sesión de la solicitud.
func (rc *RequestContext) Identity() Identity { return rc.identity }

// Slug devuelve el slug candidato de la solicitud (memoizado).
func (rc *RequestContext) Slug() string {
	if !rc.slugReady {
		rc.slug = ResolveSlug(rc.signals)
		rc.slugReady = true
	}
	return rc.slug
}

// Source devuelve el origen de la empresa efectiva; SourceNone si aún no se resolvió.
func (rc *RequestContext) Source() Source { return rc.source }

// Resolved informa si la empresa efectiva ya fue resuelta (aunque sea a ninguna).
func (rc *RequestContext) Resolved() bool { return rc.idState == resolved }

// Bypass informa si la solicitud queda fuera del filtrado: super-admin sin suplantación.
func (rc *RequestContext) Bypass() bool {
	return rc.identity.IsSuperAdmin() && rc.identity.ImpersonatedTenantID() == ""
}

// EffectiveTenantID resuelve la empresa efectiva una sola vez por solicitud.
// Una llamada anidada durante la resolución devuelve "" sin recursión.
func (rc *RequestContext) EffectiveTenantID(ctx context.Context) (string, error) {
	switch rc.idState {
	case resolved:
		return rc.tenantID, nil
	case resolving:
		return "", nil
	}
	rc.idState = resolving
	id, src, err := rc.resolveID(ctx)
	rc.idState = resolved
	if err != nil {
		rc.tenantID, rc.source = "", SourceNone
		return "", err
	}
	rc.tenantID, rc.source = id, src
	return id, nil
}

func (rc *RequestContext) resolveID(ctx context.Context) (string, Source, error) {
	if id, src, ok := rc.sessionTenant(); ok {
		return id, src, nil
	}
	slug := rc.Slug()
	if slug == "" || rc.lookup == nil {
		return "", SourceNone, nil
	}
	c, err := rc.lookup.FindBySlug(ctx, slug)
	if err != nil {
		return "", SourceNone, fmt.Errorf("resolve tenant by slug %q: %w", slug, err)
	}
	if c == nil {
		return "", SourceNone, nil
	}
	if rc.objState == unresolved {
		rc.tenant, rc.objState = c, resolved
	}
	return c.ID, SourceSlug, nil
}

// sessionTenant aplica los pasos que no necesitan almacenamiento: super-admin,
// empresa de la sesión y principal restaurado.
func (rc *RequestContext) sessionTenant() (string, Source, bool) {
	if rc.identity.IsSuperAdmin() {
		if imp := rc.identity.ImpersonatedTenantID(); imp != "" {
			return imp, SourceImpersonation, true
		}
		return "", SourceAdmin, true
	}
	if home := rc.identity.HomeTenantID(); home != "" {
		return home, SourceSession, true
	}
	if p := rc.identity.AuthenticatedPrincipal(); p != nil && !p.IsSuperAdmin() && p.TenantID != "" {
		return p.TenantID, SourcePrincipal, true
	}
	return "", SourceNone, false
}

// Tenant carga y memoiza la empresa completa: por suplantación, por empresa efectiva
// o, si no hay empresa efectiva, por slug.
func (rc *RequestContext) Tenant(ctx context.Context) (*entity.Company, error) {
	switch rc.objState {
	case resolved:
		return rc.tenant, nil
	case resolving:
		return nil, nil
	}
	rc.objState = resolving
	c, err := rc.loadTenant(ctx)
	if rc.objState == resolving {
		rc.tenant = c
		rc.objState = resolved
	}
	if err != nil {
		rc.tenant = nil
		return nil, err
	}
	return rc.tenant, nil
}

func (rc *RequestContext) loadTenant(ctx context.Context) (*entity.Company, error) {
	if rc.lookup == nil {
		return nil, nil
	}
	if rc.identity.IsSuperAdmin() {
		if imp := rc.identity.ImpersonatedTenantID(); imp != "" {
			return rc.lookup.FindByID(ctx, imp)
		}
	}
	id, err := rc.EffectiveTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if id != "" {
		return rc.lookup.FindByID(ctx, id)
	}
	if slug := rc.Slug(); slug != "" {
		return rc.lookup.FindBySlug(ctx, slug)
	}
	return nil, nil
}

// BeginLogin activa la ampliación de login para el identificador dado (email o username).
func (rc *RequestContext) BeginLogin(identifier string) {
	rc.login = true
	rc.loginIdentifier = strings.ToLower(strings.TrimSpace(identifier))
}

// EndLogin desactiva la ampliación de login.
func (rc *RequestContext) EndLogin() {
	rc.login = false
	rc.loginIdentifier = ""
}

// Login informa si hay un intento de login en curso y con qué identificador.
func (rc *RequestContext) Login() (bool, string) {
	return rc.login, rc.loginIdentifier
}

// Preliminary devuelve los valores publicables sin tocar almacenamiento.
func (rc *RequestContext) Preliminary() Settings {
	id := rc.tenantID
	if rc.idState != resolved {
		id, _, _ = rc.sessionTenant()
	}
	return rc.settings(id)
}

// Settings resuelve la empresa efectiva y devuelve los valores definitivos.
func (rc *RequestContext) Settings(ctx context.Context) (Settings, error) {
	id, err := rc.EffectiveTenantID(ctx)
	if err != nil {
		return Settings{}, err
	}
	return rc.settings(id), nil
}

func (rc *RequestContext) settings(id string) Settings {
	s := Settings{
		Slug:       rc.Slug(),
		TenantID:   id,
		SuperAdmin: rc.identity.IsSuperAdmin() && !(rc.identity.ImpersonatedTenantID() != "" && id != ""),
		Login:      rc.login,
	}
	if rc.login {
		s.LoginIdentifier = rc.loginIdentifier
	}
	return s
}

type ctxKey struct{}

// WithRequestContext asocia el contexto de tenant a ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext devuelve el contexto de tenant de ctx o nil.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

// SystemContext devuelve ctx con un contexto de super-admin sin suplantación.
func SystemContext(ctx context.Context) context.Context {
	return WithRequestContext(ctx, NewRequestContext(SystemIdentity(), Signals{}, nil))
}

// TenantContext devuelve ctx con un contexto fijo en la empresa tenantID.
func TenantContext(ctx context.Context, tenantID string) context.Context {
	return WithRequestContext(ctx, NewRequestContext(TenantIdentity(tenantID), Signals{}, nil))
}
