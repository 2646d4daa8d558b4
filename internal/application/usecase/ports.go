package usecase

import (
	"context"
	"io"

	"github.com/jhoicas/zentral/internal/domain/entity"
)

// TxRunner ejecuta fn en una unidad de trabajo; los repositorios usados con el ctx recibido
// comparten transacción y contexto de aislamiento. Lo implementa *datastore.Store.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TicketRenderer genera la representación imprimible de una venta.
type TicketRenderer interface {
	RenderTicket(w io.Writer, company *entity.Company, sale *entity.Sale, customer *entity.Customer, products map[string]*entity.Product) error
}
