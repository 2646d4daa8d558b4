package repository

import (
	"context"
	"time"

	"github.com/jhoicas/zentral/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure. Los métodos Get* devuelven nil, nil si no existe.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Company, error)
	Update(ctx context.Context, company *entity.Company) error
	List(ctx context.Context, limit, offset int) ([]*entity.Company, error)
	Count(ctx context.Context) (int, error)
	// ListPauseDue devuelve las empresas activas con pausa programada o suscripción vencida.
	ListPauseDue(ctx context.Context, now time.Time) ([]*entity.Company, error)
	// Delete elimina la empresa y todas las filas que le pertenecen.
	Delete(ctx context.Context, id string) error
	// FindByID y FindBySlug alias semánticos para la resolución de tenant.
	FindByID(ctx context.Context, id string) (*entity.Company, error)
	FindBySlug(ctx context.Context, slug string) (*entity.Company, error)
}
