package repository

import (
	"context"

	"github.com/jhoicas/zentral/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// El alcance por empresa lo aplica la capa de aislamiento, no el llamador.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, product *entity.Product) error
}
