package persistence

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

// Asegura que ProductRepo implementa repository.ProductRepository.
var _ repository.ProductRepository = (*ProductRepo)(nil)

var productColumns = []string{`"id"`, `"company_id"`, `"sku"`, `"name"`, `"price"`, `"stock"`, `"active"`, `"created_at"`}

// ProductRepo implementación del puerto ProductRepository.
type ProductRepo struct {
	store *datastore.Store
}

// NewProductRepository construye el adaptador de persistencia para productos.
func NewProductRepository(store *datastore.Store) *ProductRepo {
	return &ProductRepo{store: store}
}

func scanProduct(r datastore.Rows) (*entity.Product, error) {
	var p entity.Product
	if err := r.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.Active, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

func productValues(p *entity.Product) map[string]any {
	return map[string]any{
		"sku":    p.SKU,
		"name":   p.Name,
		"price":  p.Price,
		"stock":  p.Stock,
		"active": p.Active,
	}
}

// Create persiste un producto; sin CompanyID queda sellado con la empresa efectiva.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	values := productValues(product)
	values["id"] = product.ID
	values["created_at"] = product.CreatedAt
	if product.CompanyID != "" {
		values[datastore.TenantColumn] = product.CompanyID
	}
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		sess.Insert(datastore.TableProduct, product, values)
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return nil
	})
}

func (r *ProductRepo) getOne(ctx context.Context, q *datastore.Query) (*entity.Product, error) {
	var out *entity.Product
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		_, err := sess.SelectOne(ctx, q, func(row datastore.Rows) error {
			p, err := scanProduct(row)
			out = p
			return err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return out, nil
}

// GetByID obtiene un producto visible por ID; nil si no existe o pertenece a otra empresa.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, datastore.Select(productColumns...).FromTable(datastore.TableProduct).Filter(`"id" = ?`, id))
}

func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return r.getOne(ctx, datastore.Select(productColumns...).FromTable(datastore.TableProduct).Filter(`"sku" = ?`, sku))
}

// Update actualiza un producto. Devuelve error si ninguna fila visible coincide.
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		ch := sess.Update(datastore.TableProduct, product, "id", product.ID, productValues(product))
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if ch.Affected == 0 {
			return fmt.Errorf("update product %s: %w", product.ID, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	var list []*entity.Product
	q := datastore.Select(productColumns...).FromTable(datastore.TableProduct).Order(`"name"`).Page(limit, offset)
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		return sess.Select(ctx, q, func(row datastore.Rows) error {
			p, err := scanProduct(row)
			if err != nil {
				return err
			}
			list = append(list, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return list, nil
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		_, err := sess.SelectOne(ctx, datastore.Select("COUNT(*)").FromTable(datastore.TableProduct), func(row datastore.Rows) error {
			return row.Scan(&n)
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Delete elimina el producto dado.
func (r *ProductRepo) Delete(ctx context.Context, product *entity.Product) error {
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		ch := sess.Delete(datastore.TableProduct, product, "id", product.ID)
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if ch.Affected == 0 {
			return fmt.Errorf("delete product %s: %w", product.ID, domain.ErrNotFound)
		}
		return nil
	})
}
