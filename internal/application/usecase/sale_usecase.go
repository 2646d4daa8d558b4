package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/internal/tenancy"
)

// SaleUseCase registra y consulta ventas de la empresa efectiva.
type SaleUseCase struct {
	tx        TxRunner
	sales     repository.SaleRepository
	products  repository.ProductRepository
	customers repository.CustomerRepository
	renderer  TicketRenderer
}

// NewSaleUseCase construye el caso de uso. renderer puede ser nil si no se generan tickets.
func NewSaleUseCase(tx TxRunner, sales repository.SaleRepository, products repository.ProductRepository,
	customers repository.CustomerRepository, renderer TicketRenderer) *SaleUseCase {
	return &SaleUseCase{tx: tx, sales: sales, products: products, customers: customers, renderer: renderer}
}

// Create registra la venta en una sola unidad de trabajo: valida cliente y productos
// (solo son visibles los de la empresa efectiva), asigna número de ticket y descuenta stock.
func (uc *SaleUseCase) Create(ctx context.Context, in dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	sale := &entity.Sale{
		ID:         uuid.New().String(),
		CustomerID: in.CustomerID,
		Date:       now,
		Notes:      in.Notes,
		CreatedAt:  now,
	}
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if in.CustomerID != "" {
			c, err := uc.customers.GetByID(ctx, in.CustomerID)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("%w: cliente %s", domain.ErrNotFound, in.CustomerID)
			}
		}
		for _, it := range in.Items {
			if !it.Quantity.IsPositive() {
				return domain.ErrInvalidInput
			}
			p, err := uc.products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p == nil || !p.Active {
				return fmt.Errorf("%w: producto %s", domain.ErrNotFound, it.ProductID)
			}
			price := p.Price
			if it.UnitPrice != nil {
				if it.UnitPrice.IsNegative() {
					return domain.ErrInvalidInput
				}
				price = *it.UnitPrice
			}
			sale.Items = append(sale.Items, &entity.SaleItem{
				ID:        uuid.New().String(),
				ProductID: p.ID,
				Quantity:  it.Quantity,
				UnitPrice: price,
			})
			p.Stock = p.Stock.Sub(it.Quantity)
			if err := uc.products.Update(ctx, p); err != nil {
				return err
			}
		}
		sale.RecalculateTotal()
		n, err := uc.sales.NextTicketNumber(ctx)
		if err != nil {
			return err
		}
		sale.TicketNumber = n
		return uc.sales.Create(ctx, sale)
	})
	if err != nil {
		return nil, err
	}
	return toSaleResponse(sale), nil
}

// GetByID obtiene una venta con sus líneas.
func (uc *SaleUseCase) GetByID(ctx context.Context, id string) (*dto.SaleResponse, error) {
	s, err := uc.sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	return toSaleResponse(s), nil
}

// List lista ventas recientes.
func (uc *SaleUseCase) List(ctx context.Context, limit, offset int) (*dto.SaleListResponse, error) {
	list, err := uc.sales.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SaleResponse, 0, len(list))
	for _, s := range list {
		items = append(items, *toSaleResponse(s))
	}
	return &dto.SaleListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

// Update modifica notas o cliente de una venta visible.
func (uc *SaleUseCase) Update(ctx context.Context, id string, in dto.UpdateSaleRequest) (*dto.SaleResponse, error) {
	var out *entity.Sale
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		s, err := uc.sales.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.ErrNotFound
		}
		if in.Notes != nil {
			s.Notes = *in.Notes
		}
		if in.CustomerID != nil {
			if *in.CustomerID != "" {
				c, err := uc.customers.GetByID(ctx, *in.CustomerID)
				if err != nil {
					return err
				}
				if c == nil {
					return fmt.Errorf("%w: cliente %s", domain.ErrNotFound, *in.CustomerID)
				}
			}
			s.CustomerID = *in.CustomerID
		}
		out = s
		return uc.sales.Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return toSaleResponse(out), nil
}

// WriteTicket genera el ticket imprimible de la venta en w.
func (uc *SaleUseCase) WriteTicket(ctx context.Context, id string, w io.Writer) error {
	if uc.renderer == nil {
		return fmt.Errorf("ticket: sin generador configurado")
	}
	var (
		sale     *entity.Sale
		company  *entity.Company
		customer *entity.Customer
		products = map[string]*entity.Product{}
	)
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		sale, err = uc.sales.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrNotFound
		}
		if rc := tenancy.FromContext(ctx); rc != nil {
			if company, err = rc.Tenant(ctx); err != nil {
				return err
			}
		}
		if sale.CustomerID != "" {
			if customer, err = uc.customers.GetByID(ctx, sale.CustomerID); err != nil {
				return err
			}
		}
		for _, it := range sale.Items {
			if _, ok := products[it.ProductID]; ok {
				continue
			}
			p, err := uc.products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			products[it.ProductID] = p
		}
		return nil
	})
	if err != nil {
		return err
	}
	return uc.renderer.RenderTicket(w, company, sale, customer, products)
}

func toSaleResponse(s *entity.Sale) *dto.SaleResponse {
	out := &dto.SaleResponse{
		ID:           s.ID,
		CompanyID:    s.CompanyID,
		CustomerID:   s.CustomerID,
		TicketNumber: s.TicketNumber,
		Date:         s.Date,
		Total:        s.Total,
		Notes:        s.Notes,
	}
	for _, it := range s.Items {
		out.Items = append(out.Items, dto.SaleItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return out
}

