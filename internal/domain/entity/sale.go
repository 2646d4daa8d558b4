package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale representa la cabecera de una venta (ticket de punto de venta).
type Sale struct {
	ID           string
	CompanyID    string
	CustomerID   string // vacío: consumidor final
	TicketNumber int64
	Date         time.Time
	Total        decimal.Decimal
	Notes        string
	CreatedAt    time.Time
	Items        []*SaleItem
}

// SaleItem representa una línea de venta.
type SaleItem struct {
	ID        string
	CompanyID string
	SaleID    string
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// RecalculateTotal recalcula subtotales de líneas y el total de la venta.
func (s *Sale) RecalculateTotal() {
	total := decimal.Zero
	for _, it := range s.Items {
		it.Subtotal = it.Quantity.Mul(it.UnitPrice)
		total = total.Add(it.Subtotal)
	}
	s.Total = total
}
