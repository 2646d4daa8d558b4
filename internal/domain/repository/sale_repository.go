package repository

import (
	"context"

	"github.com/jhoicas/zentral/internal/domain/entity"
)

// SaleRepository define el puerto de persistencia para Sale y sus líneas.
type SaleRepository interface {
	// Create persiste la cabecera y las líneas en la misma unidad de trabajo.
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Sale, error)
	// Update modifica solo los campos editables de la cabecera (notas, cliente).
	Update(ctx context.Context, sale *entity.Sale) error
	NextTicketNumber(ctx context.Context) (int64, error)
}
