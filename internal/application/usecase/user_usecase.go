package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
)

// UserUseCase gestiona los usuarios de la empresa efectiva.
type UserUseCase struct {
	repo  repository.UserRepository
	perms *PermissionService
}

// NewUserUseCase construye el caso de uso con el puerto de persistencia.
func NewUserUseCase(repo repository.UserRepository, perms *PermissionService) *UserUseCase {
	return &UserUseCase{repo: repo, perms: perms}
}

var tenantRoles = map[string]bool{
	entity.RoleCompanyAdmin: true, entity.RoleAdmin: true, entity.RoleVendedor: true, entity.RoleContador: true,
}

// Create crea un usuario en la empresa efectiva. La empresa la sella la capa de aislamiento.
func (uc *UserUseCase) Create(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" || !tenantRoles[in.Role] {
		return nil, domain.ErrInvalidInput
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" {
		existing, err := uc.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrEmailAlreadyExists
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	display := in.DisplayName
	if display == "" {
		display = username
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		Username:     username,
		DisplayName:  display,
		Email:        email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Active:       true,
		Permissions:  in.Permissions,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return uc.response(ctx, user)
}

// GetByID obtiene un usuario visible por ID.
func (uc *UserUseCase) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return uc.response(ctx, user)
}

// List lista los usuarios visibles con paginación.
func (uc *UserUseCase) List(ctx context.Context, limit, offset int) (*dto.UserListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.UserResponse, 0, len(list))
	for _, u := range list {
		r, err := uc.response(ctx, u)
		if err != nil {
			return nil, err
		}
		items = append(items, *r)
	}
	return &dto.UserListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

func (uc *UserUseCase) response(ctx context.Context, u *entity.User) (*dto.UserResponse, error) {
	perms, err := uc.perms.Effective(ctx, u)
	if err != nil {
		return nil, err
	}
	return NewUserResponse(u, perms), nil
}

// NewUserResponse construye la salida de un usuario con sus permisos efectivos.
func NewUserResponse(u *entity.User, perms map[string]bool) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:          u.ID,
		CompanyID:   u.CompanyID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Role:        u.Role,
		Active:      u.Active,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
	}
}
