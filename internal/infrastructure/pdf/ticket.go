// Package pdf genera el ticket imprimible de una venta.
//
// Layout (ancho de ticket, 80 mm):
//
//	┌──────────────────────────────┐
//	│  Empresa + /c/<slug>         │
//	│  Ticket N° + Fecha           │
//	│  Cliente                     │
//	│  ──────────────────────────  │
//	│  Cant | Producto | Subtotal  │
//	│  ──────────────────────────  │
//	│  TOTAL                       │
//	│  QR de referencia            │
//	└──────────────────────────────┘
package pdf

import (
	"fmt"
	"io"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/tenancy"
)

// ── Paleta ────────────────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// TicketRenderer implementa usecase.TicketRenderer con Maroto v2.
type TicketRenderer struct{}

// NewTicketRenderer construye el generador.
func NewTicketRenderer() *TicketRenderer { return &TicketRenderer{} }

var _ usecase.TicketRenderer = (*TicketRenderer)(nil)

// RenderTicket escribe el PDF del ticket en w. company puede ser nil (contexto sin empresa
// cargada); customer nil es consumidor final.
func (r *TicketRenderer) RenderTicket(w io.Writer, company *entity.Company, sale *entity.Sale,
	customer *entity.Customer, products map[string]*entity.Product) error {
	if sale == nil {
		return fmt.Errorf("pdf: venta nula")
	}
	name := "Zentral"
	if company != nil {
		name = company.Name
	}
	cfg := config.NewBuilder().
		WithDimensions(80, 200).
		WithLeftMargin(4).WithRightMargin(4).
		WithTopMargin(4).WithBottomMargin(4).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(fmt.Sprintf("Ticket %d", sale.TicketNumber), true).
		WithAuthor(name, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRows(company, sale, customer)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(itemHeaderRow())
	m.AddRows(itemRows(sale.Items, products)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(sale))
	if ref := reference(company, sale); ref != "" {
		m.AddRows(row.New(30).Add(col.New(12).Add(code.NewQr(ref, props.Rect{Percent: 90, Center: true}))))
	}
	if sale.Notes != "" {
		m.AddRows(text.NewRow(8, sale.Notes, props.Text{Size: 7, Color: colorGray, Top: 1}))
	}

	doc, err := m.Generate()
	if err != nil {
		return fmt.Errorf("pdf: generar ticket: %w", err)
	}
	if _, err := w.Write(doc.GetBytes()); err != nil {
		return fmt.Errorf("pdf: escribir ticket: %w", err)
	}
	return nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRows(company *entity.Company, sale *entity.Sale, customer *entity.Customer) []core.Row {
	name, slug := "Zentral", ""
	if company != nil {
		name, slug = company.Name, company.Slug
	}
	rows := []core.Row{
		row.New(8).Add(col.New(12).Add(text.New(name, props.Text{
			Style: fontstyle.Bold, Size: 11, Align: align.Center, Color: colorPrimary,
		}))),
	}
	if slug != "" {
		rows = append(rows, text.NewRow(4, tenancy.PrefixSegment+slug, props.Text{Size: 7, Align: align.Center, Color: colorGray}))
	}
	rows = append(rows,
		row.New(5).Add(
			col.New(6).Add(text.New(fmt.Sprintf("Ticket N° %d", sale.TicketNumber), props.Text{Style: fontstyle.Bold, Top: 1})),
			col.New(6).Add(text.New(sale.Date.Format("02/01/2006 15:04"), props.Text{Align: align.Right, Top: 1, Color: colorGray})),
		),
		text.NewRow(5, "Cliente: "+customerName(customer), props.Text{Size: 7, Top: 1}),
	)
	return rows
}

func itemHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 7, Align: a, Top: 1}))
	}
	return row.New(5).Add(
		h("Cant.", 2, align.Left),
		h("Producto", 6, align.Left),
		h("Subtotal", 4, align.Right),
	)
}

func itemRows(items []*entity.SaleItem, products map[string]*entity.Product) []core.Row {
	out := make([]core.Row, 0, len(items))
	for _, it := range items {
		label := it.ProductID
		if p := products[it.ProductID]; p != nil {
			label = p.Name
		}
		out = append(out, row.New(5).Add(
			col.New(2).Add(text.New(it.Quantity.String(), props.Text{Size: 7})),
			col.New(6).Add(text.New(label, props.Text{Size: 7})),
			col.New(4).Add(text.New("$"+formatMoney(it.Subtotal.StringFixed(0)), props.Text{Size: 7, Align: align.Right})),
		))
	}
	return out
}

func totalRow(sale *entity.Sale) core.Row {
	return row.New(8).Add(
		col.New(6).Add(text.New("TOTAL", props.Text{Style: fontstyle.Bold, Size: 10, Color: colorPrimary, Top: 1})),
		col.New(6).Add(text.New("$"+formatMoney(sale.Total.StringFixed(0)), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 1,
		})),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func customerName(c *entity.Customer) string {
	if c == nil || c.Name == "" {
		return "Consumidor final"
	}
	if c.TaxID != "" {
		return c.Name + " (" + c.TaxID + ")"
	}
	return c.Name
}

// reference es el contenido del QR: <slug>/<número de ticket>.
func reference(company *entity.Company, sale *entity.Sale) string {
	if company == nil || company.Slug == "" {
		return ""
	}
	return fmt.Sprintf("%s/%d", company.Slug, sale.TicketNumber)
}

// formatMoney inserta puntos de miles en un entero: "1000000" → "1.000.000", "-2500" → "-2.500".
func formatMoney(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
