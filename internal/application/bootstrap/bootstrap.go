// Package bootstrap prepara el almacenamiento: crea el esquema, aplica las políticas de
// aislamiento, registra el marcador de inicialización y siembra el super-admin y la empresa
// demo. Es idempotente. El reset destructivo vive aparte y exige confirmación explícita.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/infrastructure/schema"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/config"
	"github.com/jhoicas/zentral/pkg/logger"
)

// Result resume lo que hizo una ejecución del bootstrap.
type Result struct {
	AdminCreated  bool
	ConflictMoved string // ID del usuario cuyo email se liberó para el super-admin
	DemoCompanyID string
	Statements    int
}

// Service ejecuta bootstrap y reset sobre el store configurado.
type Service struct {
	store     *datastore.Store
	def       schema.Definition
	companies repository.CompanyRepository
	users     repository.UserRepository
	companyUC *usecase.CompanyUseCase
	seed      config.SeedConfig
	log       *logger.Logger
}

// NewService construye el servicio.
func NewService(store *datastore.Store, def schema.Definition, companies repository.CompanyRepository,
	users repository.UserRepository, companyUC *usecase.CompanyUseCase, seed config.SeedConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, def: def, companies: companies, users: users, companyUC: companyUC, seed: seed, log: log.Component("bootstrap")}
}

// Bootstrap crea lo que falte y nunca borra datos. Corre con contexto de sistema.
func (s *Service) Bootstrap(ctx context.Context) (*Result, error) {
	ctx = tenancy.SystemContext(ctx)
	res := &Result{}

	err := s.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		stmts := append(s.def.CreateStatements(), s.def.PolicyStatements()...)
		stmts = append(stmts, s.def.MarkerStatement())
		for _, stmt := range stmts {
			if _, err := sess.Raw().Exec(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap %s: %w", firstLine(stmt), err)
			}
		}
		res.Statements = len(stmts)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Run(ctx, func(ctx context.Context, _ *datastore.Session) error {
		return s.seedSuperAdmin(ctx, res)
	}); err != nil {
		return nil, fmt.Errorf("seed super-admin: %w", err)
	}
	if err := s.seedDemoCompany(ctx, res); err != nil {
		return nil, fmt.Errorf("seed demo company: %w", err)
	}

	s.log.Info().Str("schema", s.def.Name()).Int("statements", res.Statements).
		Bool("admin_created", res.AdminCreated).Str("demo_company", res.DemoCompanyID).Msg("bootstrap completado")
	return res, nil
}

// seedSuperAdmin crea el super-admin si no existe. Si otro usuario ocupa su email, ese
// usuario pasa a conflict_<id>@zentral.local.
func (s *Service) seedSuperAdmin(ctx context.Context, res *Result) error {
	existing, err := s.users.FindSuperAdmin(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(s.seed.AdminEmail))
	if email != "" {
		holder, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if holder != nil {
			holder.Email = fmt.Sprintf("conflict_%s@zentral.local", holder.ID)
			if err := s.users.Update(ctx, holder); err != nil {
				return err
			}
			res.ConflictMoved = holder.ID
			s.log.Warn().Str("user_id", holder.ID).Msg("email del super-admin ocupado; usuario renombrado")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.seed.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.Create(ctx, &entity.User{
		ID:           uuid.New().String(),
		Username:     s.seed.AdminUsername,
		DisplayName:  "Zentral Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         entity.RoleSuperAdmin,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return err
	}
	res.AdminCreated = true
	return nil
}

// seedDemoCompany crea la empresa demo solo si todavía no existe ninguna empresa.
func (s *Service) seedDemoCompany(ctx context.Context, res *Result) error {
	n, err := s.companies.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 || s.seed.DemoSlug == "" {
		return nil
	}
	out, err := s.companyUC.Create(ctx, dto.CreateCompanyRequest{
		Name:          s.seed.DemoName,
		Slug:          s.seed.DemoSlug,
		AdminUsername: "admin",
		AdminEmail:    s.seed.DemoAdminEmail,
		AdminPassword: s.seed.DemoAdminPassword,
	})
	if err != nil {
		return err
	}
	res.DemoCompanyID = out.ID
	return nil
}

// Reset elimina todo el almacenamiento. Exige Enabled y Confirm == "YES"; sin ambos
// devuelve domain.ErrResetNotConfirmed sin ejecutar ninguna sentencia.
func (s *Service) Reset(ctx context.Context, guard config.ResetConfig) error {
	if !guard.Enabled || guard.Confirm != "YES" {
		return domain.ErrResetNotConfirmed
	}
	ctx = tenancy.SystemContext(ctx)
	err := s.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		return s.def.Reset(ctx, sess.Raw())
	})
	if err != nil {
		return fmt.Errorf("reset %s: %w", s.def.Name(), err)
	}
	s.log.Warn().Str("schema", s.def.Name()).Msg("almacenamiento reiniciado")
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		stmt = stmt[:i]
	}
	return stmt
}
