package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
)

// PermissionService decide qué módulos puede usar un usuario. Es el único punto de la
// aplicación que conoce cómo se combinan permisos del usuario y de su rol.
type PermissionService struct {
	users repository.UserRepository
	roles repository.CompanyRoleRepository
}

// NewPermissionService construye el servicio de permisos.
func NewPermissionService(users repository.UserRepository, roles repository.CompanyRoleRepository) *PermissionService {
	return &PermissionService{users: users, roles: roles}
}

// Effective devuelve el mapa de permisos efectivo: el super-admin tiene todo, los permisos
// propios del usuario reemplazan a los del rol y sin ninguno de los dos no hay acceso.
func (s *PermissionService) Effective(ctx context.Context, u *entity.User) (map[string]bool, error) {
	out := make(map[string]bool, len(entity.ModuleKeys))
	if u.IsSuperAdmin() {
		for _, k := range entity.ModuleKeys {
			out[k] = true
		}
		return out, nil
	}
	src := u.Permissions
	if len(src) == 0 {
		role, err := s.roles.GetByName(ctx, u.Role)
		if err != nil {
			return nil, fmt.Errorf("permisos del rol %s: %w", u.Role, err)
		}
		if role != nil {
			src = role.Permissions
		}
	}
	for _, k := range entity.ModuleKeys {
		out[k] = src[k]
	}
	return out, nil
}

// HasPermission informa si el usuario tiene acceso al módulo. Devuelve false (sin error)
// si el usuario no existe o no es visible en la empresa efectiva.
func (s *PermissionService) HasPermission(ctx context.Context, userID, module string) (bool, error) {
	if userID == "" || module == "" {
		return false, fmt.Errorf("permission: userID y module son obligatorios")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u == nil || !u.Active {
		return false, nil
	}
	perms, err := s.Effective(ctx, u)
	if err != nil {
		return false, err
	}
	return perms[module], nil
}
