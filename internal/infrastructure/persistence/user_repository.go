package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

var (
	_ repository.UserRepository        = (*UserRepo)(nil)
	_ repository.CompanyRoleRepository = (*CompanyRoleRepo)(nil)
)

var userColumns = []string{
	`"id"`, `"company_id"`, `"username"`, `"display_name"`, `"email"`, `"password_hash"`,
	`"role"`, `"active"`, `"permissions"`, `"created_at"`,
}

// UserRepo implementación del puerto UserRepository.
type UserRepo struct {
	store *datastore.Store
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(store *datastore.Store) *UserRepo {
	return &UserRepo{store: store}
}

func scanUser(r datastore.Rows) (*entity.User, error) {
	var (
		u                entity.User
		companyID, email *string
		permissions      string
	)
	if err := r.Scan(&u.ID, &companyID, &u.Username, &u.DisplayName, &email, &u.PasswordHash,
		&u.Role, &u.Active, &permissions, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CompanyID = deref(companyID)
	u.Email = deref(email)
	perms, err := decodePermissions(permissions)
	if err != nil {
		return nil, err
	}
	u.Permissions = perms
	return &u, nil
}

func userValues(u *entity.User) (map[string]any, error) {
	perms, err := encodePermissions(u.Permissions)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"username":      u.Username,
		"display_name":  u.DisplayName,
		"email":         nullable(strings.ToLower(u.Email)),
		"password_hash": u.PasswordHash,
		"role":          u.Role,
		"active":        u.Active,
		"permissions":   perms,
	}, nil
}

// Create persiste un usuario. CompanyID vacío se guarda como NULL (super-admin);
// para el resto el guarda de escritura sella la empresa efectiva.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	values, err := userValues(user)
	if err != nil {
		return err
	}
	values["id"] = user.ID
	values["created_at"] = user.CreatedAt
	if user.CompanyID != "" {
		values[datastore.TenantColumn] = user.CompanyID
	}
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		sess.Insert(datastore.TableUser, user, values)
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
}

func (r *UserRepo) getOne(ctx context.Context, q *datastore.Query) (*entity.User, error) {
	var out *entity.User
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		_, err := sess.SelectOne(ctx, q, func(row datastore.Rows) error {
			u, err := scanUser(row)
			out = u
			return err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return out, nil
}

func (r *UserRepo) list(ctx context.Context, q *datastore.Query) ([]*entity.User, error) {
	var list []*entity.User
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		return sess.Select(ctx, q, func(row datastore.Rows) error {
			u, err := scanUser(row)
			if err != nil {
				return err
			}
			list = append(list, u)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, datastore.Select(userColumns...).FromTable(datastore.TableUser).Filter(`"id" = ?`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	q := datastore.Select(userColumns...).FromTable(datastore.TableUser).
		Filter(`lower("email") = ?`, strings.ToLower(strings.TrimSpace(email)))
	return r.getOne(ctx, q)
}

// FindByLoginIdentifier busca usuarios cuyo email o username coincida con identifier.
// Puede devolver varios: el mismo username existe en distintas empresas.
func (r *UserRepo) FindByLoginIdentifier(ctx context.Context, identifier string) ([]*entity.User, error) {
	ident := strings.ToLower(strings.TrimSpace(identifier))
	q := datastore.Select(userColumns...).FromTable(datastore.TableUser).
		Filter(`lower("email") = ? OR lower("username") = ?`, ident, ident).
		Order(`"created_at"`)
	return r.list(ctx, q)
}

// FindSuperAdmin devuelve el primer super-admin de la plataforma.
func (r *UserRepo) FindSuperAdmin(ctx context.Context) (*entity.User, error) {
	q := datastore.Select(userColumns...).FromTable(datastore.TableUser).
		Filter(`"role" = ? AND "company_id" IS NULL`, entity.RoleSuperAdmin).
		Order(`"created_at"`)
	return r.getOne(ctx, q)
}

// Update actualiza un usuario. La empresa no se modifica por esta vía.
func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	values, err := userValues(user)
	if err != nil {
		return err
	}
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		ch := sess.Update(datastore.TableUser, user, "id", user.ID, values)
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if ch.Affected == 0 {
			return fmt.Errorf("update user %s: %w", user.ID, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	q := datastore.Select(userColumns...).FromTable(datastore.TableUser).Order(`"username"`).Page(limit, offset)
	return r.list(ctx, q)
}

// CompanyRoleRepo implementación del puerto CompanyRoleRepository.
type CompanyRoleRepo struct {
	store *datastore.Store
}

// NewCompanyRoleRepository construye el adaptador de persistencia para roles de empresa.
func NewCompanyRoleRepository(store *datastore.Store) *CompanyRoleRepo {
	return &CompanyRoleRepo{store: store}
}

var roleColumns = []string{`"id"`, `"company_id"`, `"name"`, `"permissions"`, `"created_at"`}

func scanRole(r datastore.Rows) (*entity.CompanyRole, error) {
	var (
		role  entity.CompanyRole
		perms string
	)
	if err := r.Scan(&role.ID, &role.CompanyID, &role.Name, &perms, &role.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan company role: %w", err)
	}
	m, err := decodePermissions(perms)
	if err != nil {
		return nil, err
	}
	role.Permissions = m
	return &role, nil
}

func (r *CompanyRoleRepo) Create(ctx context.Context, role *entity.CompanyRole) error {
	perms, err := encodePermissions(role.Permissions)
	if err != nil {
		return err
	}
	values := map[string]any{
		"id":          role.ID,
		"name":        role.Name,
		"permissions": perms,
		"created_at":  role.CreatedAt,
	}
	if role.CompanyID != "" {
		values[datastore.TenantColumn] = role.CompanyID
	}
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		sess.Insert(datastore.TableCompanyRole, role, values)
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("insert company role: %w", err)
		}
		return nil
	})
}

func (r *CompanyRoleRepo) GetByName(ctx context.Context, name string) (*entity.CompanyRole, error) {
	var out *entity.CompanyRole
	q := datastore.Select(roleColumns...).FromTable(datastore.TableCompanyRole).Filter(`"name" = ?`, name)
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		_, err := sess.SelectOne(ctx, q, func(row datastore.Rows) error {
			role, err := scanRole(row)
			out = role
			return err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get company role: %w", err)
	}
	return out, nil
}

func (r *CompanyRoleRepo) List(ctx context.Context) ([]*entity.CompanyRole, error) {
	var list []*entity.CompanyRole
	q := datastore.Select(roleColumns...).FromTable(datastore.TableCompanyRole).Order(`"name"`)
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		return sess.Select(ctx, q, func(row datastore.Rows) error {
			role, err := scanRole(row)
			if err != nil {
				return err
			}
			list = append(list, role)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list company roles: %w", err)
	}
	return list, nil
}
