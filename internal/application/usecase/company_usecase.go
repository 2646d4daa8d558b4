package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/pkg/logger"
)

// CompanyUseCase reúne las operaciones de plataforma sobre empresas: alta con roles por
// defecto, pausa, reactivación y borrado en cascada. Se invoca con un contexto de super-admin.
type CompanyUseCase struct {
	tx        TxRunner
	companies repository.CompanyRepository
	users     repository.UserRepository
	roles     repository.CompanyRoleRepository
	log       *logger.Logger
	now       func() time.Time
}

// NewCompanyUseCase construye el caso de uso con los puertos de persistencia.
func NewCompanyUseCase(tx TxRunner, companies repository.CompanyRepository, users repository.UserRepository,
	roles repository.CompanyRoleRepository, log *logger.Logger) *CompanyUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &CompanyUseCase{tx: tx, companies: companies, users: users, roles: roles, log: log, now: time.Now}
}

// Create crea la empresa, sus roles por defecto y, si se indica contraseña, su administrador.
// Devuelve domain.ErrDuplicate si el slug existe y domain.ErrInvalidInput si no hay slug válido.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" || reservedSlugs[slug] {
		return nil, fmt.Errorf("%w: slug %q", domain.ErrInvalidInput, slug)
	}
	plan := in.Plan
	if plan == "" {
		plan = "basic"
	}
	now := uc.now().UTC()
	company := &entity.Company{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug,
		Plan:      plan,
		Status:    entity.CompanyStatusActive,
		CreatedAt: now,
	}

	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := uc.companies.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicate
		}
		if err := uc.companies.Create(ctx, company); err != nil {
			return err
		}
		if err := uc.createDefaultRoles(ctx, company.ID, now); err != nil {
			return err
		}
		if in.AdminPassword == "" {
			return nil
		}
		return uc.createAdmin(ctx, company.ID, in, now)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", company.ID).Str("slug", slug).Msg("empresa creada")
	return NewCompanyResponse(company), nil
}

func (uc *CompanyUseCase) createDefaultRoles(ctx context.Context, companyID string, now time.Time) error {
	defaults := entity.DefaultRolePermissions()
	names := make([]string, 0, len(defaults))
	for n := range defaults {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		role := &entity.CompanyRole{
			ID:          uuid.New().String(),
			CompanyID:   companyID,
			Name:        n,
			Permissions: defaults[n],
			CreatedAt:   now,
		}
		if err := uc.roles.Create(ctx, role); err != nil {
			return fmt.Errorf("crear rol %s: %w", n, err)
		}
	}
	return nil
}

func (uc *CompanyUseCase) createAdmin(ctx context.Context, companyID string, in dto.CreateCompanyRequest, now time.Time) error {
	email := strings.ToLower(strings.TrimSpace(in.AdminEmail))
	if email != "" {
		existing, err := uc.users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrEmailAlreadyExists
		}
	}
	username := strings.TrimSpace(in.AdminUsername)
	if username == "" {
		username = "admin"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return uc.users.Create(ctx, &entity.User{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		Username:     username,
		DisplayName:  "Administrador",
		Email:        email,
		PasswordHash: string(hash),
		Role:         entity.RoleCompanyAdmin,
		Active:       true,
		CreatedAt:    now,
	})
}

// GetByID obtiene una empresa por ID; domain.ErrNotFound si no existe.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	c, err := uc.companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return NewCompanyResponse(c), nil
}

// List lista empresas con paginación.
func (uc *CompanyUseCase) List(ctx context.Context, limit, offset int) (*dto.CompanyListResponse, error) {
	list, err := uc.companies.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.companies.Count(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CompanyResponse, 0, len(list))
	for _, c := range list {
		items = append(items, *NewCompanyResponse(c))
	}
	return &dto.CompanyListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset, Total: total},
	}, nil
}

// Pause pausa la empresa ahora o programa la pausa si ScheduledFor es futuro.
func (uc *CompanyUseCase) Pause(ctx context.Context, id string, in dto.PauseCompanyRequest) (*dto.CompanyResponse, error) {
	var out *entity.Company
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := uc.companies.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		now := uc.now().UTC()
		if in.ScheduledFor != nil && in.ScheduledFor.After(now) {
			at := in.ScheduledFor.UTC()
			c.PauseScheduledFor = &at
			c.PauseReason = in.Reason
		} else {
			c.Pause(in.Reason, now)
		}
		out = c
		return uc.companies.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", id).Str("status", out.Status).Msg("pausa de empresa registrada")
	return NewCompanyResponse(out), nil
}

// Reactivate vuelve a activar una empresa y limpia la pausa programada.
func (uc *CompanyUseCase) Reactivate(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	var out *entity.Company
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := uc.companies.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		c.Reactivate()
		out = c
		return uc.companies.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return NewCompanyResponse(out), nil
}

// Delete elimina la empresa con todos sus datos.
func (uc *CompanyUseCase) Delete(ctx context.Context, id string) error {
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := uc.companies.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		return uc.companies.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	uc.log.Warn().Str("company_id", id).Msg("empresa eliminada")
	return nil
}

// SweepPauses pausa las empresas con pausa programada o suscripción vencida. Devuelve cuántas pausó.
func (uc *CompanyUseCase) SweepPauses(ctx context.Context) (int, error) {
	now := uc.now().UTC()
	paused := 0
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		due, err := uc.companies.ListPauseDue(ctx, now)
		if err != nil {
			return err
		}
		for _, c := range due {
			reason := c.PauseReason
			if reason == "" {
				reason = "suscripción vencida"
			}
			c.Pause(reason, now)
			if err := uc.companies.Update(ctx, c); err != nil {
				return err
			}
			paused++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return paused, nil
}

// NewCompanyResponse construye la salida de una empresa.
func NewCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	if c == nil {
		return nil
	}
	return &dto.CompanyResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Slug:               c.Slug,
		Plan:               c.Plan,
		Status:             c.Status,
		PausedAt:           c.PausedAt,
		PauseReason:        c.PauseReason,
		PauseScheduledFor:  c.PauseScheduledFor,
		SubscriptionEndsAt: c.SubscriptionEndsAt,
		CreatedAt:          c.CreatedAt,
	}
}
