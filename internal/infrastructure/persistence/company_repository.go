package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
	"github.com/jhoicas/zentral/internal/infrastructure/schema"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

var companyColumns = []string{
	`"id"`, `"name"`, `"slug"`, `"plan"`, `"status"`, `"paused_at"`, `"pause_reason"`,
	`"pause_scheduled_for"`, `"subscription_ends_at"`, `"created_at"`,
}

// CompanyRepo implementación del puerto CompanyRepository.
type CompanyRepo struct {
	store *datastore.Store
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(store *datastore.Store) *CompanyRepo {
	return &CompanyRepo{store: store}
}

func scanCompany(r datastore.Rows) (*entity.Company, error) {
	var c entity.Company
	if err := r.Scan(&c.ID, &c.Name, &c.Slug, &c.Plan, &c.Status, &c.PausedAt, &c.PauseReason,
		&c.PauseScheduledFor, &c.SubscriptionEndsAt, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan company: %w", err)
	}
	return &c, nil
}

func companyValues(c *entity.Company) map[string]any {
	return map[string]any{
		"name":                 c.Name,
		"slug":                 c.Slug,
		"plan":                 c.Plan,
		"status":               c.Status,
		"paused_at":            c.PausedAt,
		"pause_reason":         c.PauseReason,
		"pause_scheduled_for":  c.PauseScheduledFor,
		"subscription_ends_at": c.SubscriptionEndsAt,
	}
}

// Create persiste una nueva empresa.
func (r *CompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		values := companyValues(company)
		values["id"] = company.ID
		values["created_at"] = company.CreatedAt
		sess.Insert(datastore.TableCompany, company, values)
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("insert company: %w", err)
		}
		return nil
	})
}

func (r *CompanyRepo) getOne(ctx context.Context, q *datastore.Query) (*entity.Company, error) {
	var out *entity.Company
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		_, err := sess.SelectOne(ctx, q, func(row datastore.Rows) error {
			c, err := scanCompany(row)
			out = c
			return err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return out, nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return r.getOne(ctx, datastore.Select(companyColumns...).FromTable(datastore.TableCompany).Filter(`"id" = ?`, id))
}

// GetBySlug obtiene una empresa por slug.
func (r *CompanyRepo) GetBySlug(ctx context.Context, slug string) (*entity.Company, error) {
	return r.getOne(ctx, datastore.Select(companyColumns...).FromTable(datastore.TableCompany).Filter(`"slug" = ?`, slug))
}

func (r *CompanyRepo) FindByID(ctx context.Context, id string) (*entity.Company, error) {
	return r.GetByID(ctx, id)
}

func (r *CompanyRepo) FindBySlug(ctx context.Context, slug string) (*entity.Company, error) {
	return r.GetBySlug(ctx, slug)
}

// Update actualiza los datos y el estado de la empresa.
func (r *CompanyRepo) Update(ctx context.Context, company *entity.Company) error {
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		ch := sess.Update(datastore.TableCompany, company, "id", company.ID, companyValues(company))
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("update company: %w", err)
		}
		if ch.Affected == 0 {
			return fmt.Errorf("update company %s: %w", company.ID, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *CompanyRepo) list(ctx context.Context, q *datastore.Query) ([]*entity.Company, error) {
	var list []*entity.Company
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		return sess.Select(ctx, q, func(row datastore.Rows) error {
			c, err := scanCompany(row)
			if err != nil {
				return err
			}
			list = append(list, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return list, nil
}

// List lista empresas ordenadas por nombre.
func (r *CompanyRepo) List(ctx context.Context, limit, offset int) ([]*entity.Company, error) {
	q := datastore.Select(companyColumns...).FromTable(datastore.TableCompany).Order(`"name"`).Page(limit, offset)
	return r.list(ctx, q)
}

// ListPauseDue lista empresas activas cuya pausa programada o suscripción venció.
func (r *CompanyRepo) ListPauseDue(ctx context.Context, now time.Time) ([]*entity.Company, error) {
	q := datastore.Select(companyColumns...).FromTable(datastore.TableCompany).
		Filter(`"status" = ?`, entity.CompanyStatusActive).
		Filter(`("pause_scheduled_for" IS NOT NULL AND "pause_scheduled_for" <= ?) OR ("subscription_ends_at" IS NOT NULL AND "subscription_ends_at" <= ?)`, now, now)
	list, err := r.list(ctx, q)
	if err != nil {
		return nil, err
	}
	// La comparación de fechas en SQLite es textual; se confirma en Go.
	due := list[:0]
	for _, c := range list {
		if c.PauseDue(now) {
			due = append(due, c)
		}
	}
	return due, nil
}

// Count devuelve la cantidad de empresas visibles.
func (r *CompanyRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		_, err := sess.SelectOne(ctx, datastore.Select("COUNT(*)").FromTable(datastore.TableCompany), func(row datastore.Rows) error {
			return row.Scan(&n)
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return n, nil
}

// Delete elimina la empresa y en cascada todas las filas que le pertenecen.
func (r *CompanyRepo) Delete(ctx context.Context, id string) error {
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		for _, table := range schema.TableNames() {
			sess.Delete(table, nil, datastore.TenantColumn, id)
		}
		ch := sess.Delete(datastore.TableCompany, nil, "id", id)
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("delete company: %w", err)
		}
		if ch.Affected == 0 {
			return fmt.Errorf("delete company %s: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}
