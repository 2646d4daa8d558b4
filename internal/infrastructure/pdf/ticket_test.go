package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/internal/domain/entity"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "0", formatMoney("0"))
	assert.Equal(t, "25.000", formatMoney("25000"))
	assert.Equal(t, "1.000.000", formatMoney("1000000"))
	assert.Equal(t, "-2.500", formatMoney("-2500"))
}

func TestReference_SinEmpresaNoHayQR(t *testing.T) {
	sale := &entity.Sale{TicketNumber: 7}
	assert.Empty(t, reference(nil, sale))
	assert.Equal(t, "alfa/7", reference(&entity.Company{Slug: "alfa"}, sale))
}

func TestRenderTicket_GeneraPDF(t *testing.T) {
	sale := &entity.Sale{
		ID: "s1", TicketNumber: 12, Date: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), Notes: "gracias",
		Items: []*entity.SaleItem{
			{ProductID: "p1", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(1500)},
			{ProductID: "borrado", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(900)},
		},
	}
	sale.RecalculateTotal()
	products := map[string]*entity.Product{"p1": {ID: "p1", Name: "Pan"}}

	var buf bytes.Buffer
	err := NewTicketRenderer().RenderTicket(&buf, &entity.Company{Name: "Alfa", Slug: "alfa"}, sale, nil, products)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "la salida debe ser un PDF")
}

func TestRenderTicket_VentaNula(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewTicketRenderer().RenderTicket(&buf, nil, nil, nil, nil))
	assert.Zero(t, buf.Len())
}
