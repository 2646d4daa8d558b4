// Package auth implementa el login con ampliación temporal de visibilidad sobre usuarios,
// la restauración del principal desde el token de "recordarme" y la consulta de identidad.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/jwt"
	"github.com/jhoicas/zentral/pkg/logger"
)

// JWTConfig configuración del token de "recordarme".
type JWTConfig struct {
	Secret       string
	Issuer       string
	RememberDays int
}

// LoginResult usuario autenticado, su empresa (nil para super-admin) y el token opcional.
type LoginResult struct {
	User          *entity.User
	Company       *entity.Company
	RememberToken string
}

// AuthUseCase casos de uso de autenticación.
type AuthUseCase struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	perms     *usecase.PermissionService
	jwtCfg    JWTConfig
	log       *logger.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(users repository.UserRepository, companies repository.CompanyRepository,
	perms *usecase.PermissionService, jwtCfg JWTConfig, log *logger.Logger) *AuthUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthUseCase{users: users, companies: companies, perms: perms, jwtCfg: jwtCfg, log: log}
}

// Login verifica identificador (email o username) y contraseña. Durante la búsqueda la
// solicitud queda marcada como login, lo que amplía la visibilidad de la tabla de usuarios
// solo para lectura; la marca se retira siempre al terminar.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*LoginResult, error) {
	ident := strings.ToLower(strings.TrimSpace(in.Identifier))
	if ident == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	rc := tenancy.FromContext(ctx)
	if rc == nil {
		rc = tenancy.NewRequestContext(nil, tenancy.Signals{}, nil)
		ctx = tenancy.WithRequestContext(ctx, rc)
	}

	user, err := uc.findCandidate(ctx, rc, ident)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !user.Active {
		return nil, domain.ErrForbidden
	}

	res := &LoginResult{User: user}
	if !user.IsSuperAdmin() {
		// Autenticado: la empresa se consulta ya acotada a la del usuario.
		company, err := uc.companies.GetByID(tenancy.TenantContext(ctx, user.CompanyID), user.CompanyID)
		if err != nil {
			return nil, err
		}
		if company == nil {
			return nil, domain.ErrUnauthorized
		}
		if company.IsPaused() {
			return nil, domain.ErrCompanyPaused
		}
		res.Company = company
	}
	if in.Remember && uc.jwtCfg.Secret != "" {
		days := uc.jwtCfg.RememberDays
		if days <= 0 {
			days = 30
		}
		tok, err := jwt.Generate(uc.jwtCfg.Secret, uc.jwtCfg.Issuer, user.ID, user.CompanyID, user.Role, time.Duration(days)*24*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("remember token: %w", err)
		}
		res.RememberToken = tok
	}
	uc.log.Info().Str("user_id", user.ID).Str("company_id", user.CompanyID).Msg("login correcto")
	return res, nil
}

// findCandidate busca el usuario con la marca de login activa. Si el identificador coincide
// en varias empresas se prefiere la empresa resuelta de la solicitud; sin ella es ambiguo.
func (uc *AuthUseCase) findCandidate(ctx context.Context, rc *tenancy.RequestContext, ident string) (*entity.User, error) {
	rc.BeginLogin(ident)
	defer rc.EndLogin()

	found, err := uc.users.FindByLoginIdentifier(ctx, ident)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	// El email es único global: una coincidencia por email gana.
	for _, u := range found {
		if u.Email != "" && u.Email == ident {
			return u, nil
		}
	}
	tenantID, err := rc.EffectiveTenantID(ctx)
	if err != nil {
		return nil, err
	}
	var preferred *entity.User
	for _, u := range found {
		if tenantID != "" && u.CompanyID == tenantID {
			if preferred != nil {
				return nil, domain.ErrAmbiguousLogin
			}
			preferred = u
		}
	}
	if preferred == nil {
		return nil, domain.ErrAmbiguousLogin
	}
	return preferred, nil
}

// RestorePrincipal valida el token de "recordarme" y devuelve el principal si el usuario
// sigue activo en la misma empresa.
func (uc *AuthUseCase) RestorePrincipal(ctx context.Context, token string) (*tenancy.Principal, error) {
	if uc.jwtCfg.Secret == "" {
		return nil, domain.ErrUnauthorized
	}
	claims, err := jwt.Parse(uc.jwtCfg.Secret, uc.jwtCfg.Issuer, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	lookupCtx := tenancy.SystemContext(ctx)
	if claims.CompanyID != "" {
		lookupCtx = tenancy.TenantContext(ctx, claims.CompanyID)
	}
	u, err := uc.users.GetByID(lookupCtx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Active || u.CompanyID != claims.CompanyID {
		return nil, domain.ErrUnauthorized
	}
	return &tenancy.Principal{ID: u.ID, TenantID: u.CompanyID, Role: u.Role}, nil
}

// Me devuelve el usuario de la sesión y el contexto de tenant efectivo.
func (uc *AuthUseCase) Me(ctx context.Context, userID string) (*dto.MeResponse, error) {
	rc := tenancy.FromContext(ctx)
	if rc == nil || userID == "" {
		return nil, domain.ErrUnauthorized
	}
	u, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		// Un super-admin suplantando no ve su propia fila dentro de la empresa suplantada.
		u, err = uc.users.GetByID(tenancy.SystemContext(ctx), userID)
		if err != nil {
			return nil, err
		}
		if u == nil || !u.IsSuperAdmin() {
			return nil, domain.ErrUserNotFound
		}
	}
	perms, err := uc.perms.Effective(ctx, u)
	if err != nil {
		return nil, err
	}
	out := &dto.MeResponse{
		User:          *usecase.NewUserResponse(u, perms),
		Impersonating: rc.Identity().IsSuperAdmin() && rc.Identity().ImpersonatedTenantID() != "",
	}
	company, err := rc.Tenant(ctx)
	if err != nil {
		return nil, err
	}
	if company != nil {
		out.Company = usecase.NewCompanyResponse(company)
	}
	if _, err := rc.EffectiveTenantID(ctx); err != nil {
		return nil, err
	}
	out.TenantSource = string(rc.Source())
	return out, nil
}
