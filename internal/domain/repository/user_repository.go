package repository

import (
	"context"

	"github.com/jhoicas/zentral/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// FindByLoginIdentifier busca por email o username sin distinguir mayúsculas.
	// Solo devuelve filas de otras empresas durante un login marcado.
	FindByLoginIdentifier(ctx context.Context, identifier string) ([]*entity.User, error)
	FindSuperAdmin(ctx context.Context) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	List(ctx context.Context, limit, offset int) ([]*entity.User, error)
}

// CompanyRoleRepository define el puerto de persistencia para CompanyRole.
type CompanyRoleRepository interface {
	Create(ctx context.Context, role *entity.CompanyRole) error
	GetByName(ctx context.Context, name string) (*entity.CompanyRole, error)
	List(ctx context.Context) ([]*entity.CompanyRole, error)
}
