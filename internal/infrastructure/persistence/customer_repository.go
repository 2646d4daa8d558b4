package persistence

import (
	"context"
	"fmt"

	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/domain/repository"
	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

var customerColumns = []string{`"id"`, `"company_id"`, `"name"`, `"tax_id"`, `"email"`, `"phone"`, `"created_at"`}

// CustomerRepo implementación del puerto CustomerRepository.
type CustomerRepo struct {
	store *datastore.Store
}

func NewCustomerRepository(store *datastore.Store) *CustomerRepo {
	return &CustomerRepo{store: store}
}

func scanCustomer(r datastore.Rows) (*entity.Customer, error) {
	var c entity.Customer
	if err := r.Scan(&c.ID, &c.CompanyID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepo) Create(ctx context.Context, customer *entity.Customer) error {
	values := map[string]any{
		"id":         customer.ID,
		"name":       customer.Name,
		"tax_id":     customer.TaxID,
		"email":      customer.Email,
		"phone":      customer.Phone,
		"created_at": customer.CreatedAt,
	}
	if customer.CompanyID != "" {
		values[datastore.TenantColumn] = customer.CompanyID
	}
	return r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		sess.Insert(datastore.TableCustomer, customer, values)
		if err := sess.Flush(ctx); err != nil {
			return fmt.Errorf("insert customer: %w", err)
		}
		return nil
	})
}

func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	var out *entity.Customer
	q := datastore.Select(customerColumns...).FromTable(datastore.TableCustomer).Filter(`"id" = ?`, id)
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		_, err := sess.SelectOne(ctx, q, func(row datastore.Rows) error {
			c, err := scanCustomer(row)
			out = c
			return err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return out, nil
}

func (r *CustomerRepo) List(ctx context.Context, limit, offset int) ([]*entity.Customer, error) {
	var list []*entity.Customer
	q := datastore.Select(customerColumns...).FromTable(datastore.TableCustomer).Order(`"name"`).Page(limit, offset)
	err := r.store.Run(ctx, func(ctx context.Context, sess *datastore.Session) error {
		return sess.Select(ctx, q, func(row datastore.Rows) error {
			c, err := scanCustomer(row)
			if err != nil {
				return err
			}
			list = append(list, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return list, nil
}
