package persistence

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

var (
	saleColumns = []string{
		`s."id"`, `s."company_id"`, `s."customer_id"`, `s."ticket_number"`, `s."date"`,
		`s."total"`, `s."notes"`, `s."created_at"`,
	}
	saleItemColumns = []string{
		`"id"`, `"company_id"`, `"sale_id"`, `"product_id"`, `"quantity"`, `"unit_price"`, `"subtotal"`,
	}
)

// SaleRepo implementación del puerto SaleRepository.
type SaleRepo struct {
	store *datastore.Store
}

// NewSaleRepository construye el adaptador de persistencia para ventas.
func NewSaleRepository(store *datastore.Store) *SaleRepo {
	return &SaleRepo{store: store}
}

func scanSale(r datastore.Rows) (*entity.Sale, error) {
	var (
		s          entity.Sale
		customerID *string
	)
	if err := r.Scan(&s.ID, &s.CompanyID, &customerID, &s.TicketNumber, &s.Date, &s.Total, &s.Notes, &s.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan sale: %w", err)
	}
	s.CustomerID = deref(customerID)
	return &s, nil
}

func scanSaleItem(r datastore.Rows) (*entity.SaleItem, error) {
	var it entity.SaleItem
	if err := r.Scan(&it.ID, &it.CompanyID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
		return nil, fmt.Errorf("scan sale item: %w", err)
	}
	return &it, nil
}

// Create persiste la venta y sus líneas en una sola unidad de trabajo. Las líneas
// heredan la empresa de la cabecera.
func (r *SaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		values := map[string]any{
			"id":            sale.ID,
			"customer_id":   nullable(sale.CustomerID),
			"ticket_number": sale.TicketNumber,
			"date":          sale.Date,
			"total":         sale.Total,
			"notes":         sale.Notes,
			"created_at":    sale.CreatedAt,
		}
		if sale.CompanyID != "" {
			values[datastore.TenantColumn] = sale.CompanyID
		}
		sess.Insert(datastore.TableSale, sale, values)
		// La cabecera se escribe primero: las líneas la referencian.
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		for _, it := range sale.Items {
			it.SaleID = sale.ID
			it.CompanyID = sale.CompanyID
			sess.Insert(datastore.TableSaleItem, it, map[string]any{
				"id":                   it.ID,
				"sale_id":              it.SaleID,
				"product_id":           it.ProductID,
				"quantity":             it.Quantity,
				"unit_price":           it.UnitPrice,
				"subtotal":             it.Subtotal,
				datastore.TenantColumn: it.CompanyID,
			})
		}
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("insert sale items: %w", err)
		}
		return nil
	})
}

// GetByID carga la venta con sus líneas. Las líneas pasan por el mismo filtrado que la cabecera.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	var out *entity.Sale
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		q := datastore.Select(saleColumns...).FromAs(datastore.TableSale, "s").Filter(`s."id" = ?`, id)
		found, err := sess.SelectOne(ctx, q, func(row datastore.Rows) error {
			s, err := scanSale(row)
			out = s
			return err
		})
		if err != nil || !found {
			return err
		}
		items := datastore.Select(saleItemColumns...).FromTable(datastore.TableSaleItem).
			Filter(`"sale_id" = ?`, id).Order(`"id"`)
		return sess.Select(ctx, items, func(row datastore.Rows) error {
			it, err := scanSaleItem(row)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, it)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return out, nil
}

// List lista ventas recientes primero, sin líneas.
func (r *SaleRepo) List(ctx context.Context, limit, offset int) ([]*entity.Sale, error) {
	var list []*entity.Sale
	q := datastore.Select(saleColumns...).FromAs(datastore.TableSale, "s").
		Order(`s."ticket_number" DESC`).Page(limit, offset)
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		return sess.Select(ctx, q, func(row datastore.Rows) error {
			s, err := scanSale(row)
			if err != nil {
				return err
			}
			list = append(list, s)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return list, nil
}

// Update modifica notas y cliente de la venta.
func (r *SaleRepo) Update(ctx context.Context, sale *entity.Sale) error {
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		ch := sess.Update(datastore.TableSale, sale, "id", sale.ID, map[string]any{
			"notes":       sale.Notes,
			"customer_id": nullable(sale.CustomerID),
		})
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		if ch.Affected == 0 {
			return fmt.Errorf("update sale %s: %w", sale.ID, domain.ErrNotFound)
		}
		return nil
	})
}

// NextTicketNumber devuelve el siguiente número de ticket de la empresa efectiva.
func (r *SaleRepo) NextTicketNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		q := datastore.Select(`COALESCE(MAX("ticket_number"), 0) + 1`).FromTable(datastore.TableSale)
		_, err := sess.SelectOne(ctx, q, func(row datastore.Rows) error {
			return row.Scan(&n)
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("next ticket number: %w", err)
	}
	return n, nil
}
