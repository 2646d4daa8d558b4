package tenancy

import "github.com/jhoicas/zentral/internal/domain/entity"

// Principal es el usuario autenticado tal como lo ve el contexto de tenant.
type Principal struct {
	ID       string
	TenantID string
	Role     string
}

// IsSuperAdmin informa si el principal tiene rol de super-admin.
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == entity.RoleSuperAdmin
}

// Identity es el contrato de lectura sobre el estado de sesión/autenticación.
type Identity interface {
	IsSuperAdmin() bool
	HomeTenantID() string
	// ImpersonatedTenantID solo tiene sentido cuando IsSuperAdmin es true.
	ImpersonatedTenantID() string
	AuthenticatedPrincipal() *Principal
}

// IdentityMutator agrupa las mutaciones de sesión que invocan el router y los guardas.
type IdentityMutator interface {
	SetImpersonation(tenantID string) error
	ClearImpersonation() error
	ClearTenantSessionState() error
}

// StaticIdentity es una identidad inmutable para procesos sin sesión (bootstrap, scheduler, tests).
type StaticIdentity struct {
	SuperAdmin   bool
	HomeTenant   string
	Impersonated string
	Principal    *Principal
}

func (s StaticIdentity) IsSuperAdmin() bool                 { return s.SuperAdmin }
func (s StaticIdentity) HomeTenantID() string               { return s.HomeTenant }
func (s StaticIdentity) ImpersonatedTenantID() string       { return s.Impersonated }
func (s StaticIdentity) AuthenticatedPrincipal() *Principal { return s.Principal }

// SystemIdentity es un super-admin sin suplantación: ve todas las empresas.
func SystemIdentity() StaticIdentity {
	return StaticIdentity{SuperAdmin: true}
}

// TenantIdentity actúa dentro de una empresa concreta sin usuario asociado.
func TenantIdentity(tenantID string) StaticIdentity {
	return StaticIdentity{HomeTenant: tenantID}
}
