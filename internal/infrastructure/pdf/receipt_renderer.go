// Package pdf implementa la generación del CAFE (Comprobante Auxiliar de
// Factura Electrónica): la representación gráfica del documento fiscal
// autorizado, con CUFE, código QR de consulta y leyenda legal de la DGI.
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/panafact/facturacion-api/internal/application/invoicing"
	"github.com/panafact/facturacion-api/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

var (
	colorPrimary = &props.Color{Red: 0, Green: 90, Blue: 60}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var _ invoicing.ReceiptRenderer = (*CAFERenderer)(nil)

// CAFERenderer implementa invoicing.ReceiptRenderer usando Maroto v2.
type CAFERenderer struct{}

// NewCAFERenderer construye el renderizador.
func NewCAFERenderer() *CAFERenderer { return &CAFERenderer{} }

// Render genera el PDF del CAFE y devuelve sus bytes. Solo tiene sentido
// sobre documentos autorizados: el CUFE y la URL de consulta salen del
// FiscalDocument.
func (g *CAFERenderer) Render(
	_ context.Context,
	invoice *entity.Invoice,
	profile *entity.IssuerProfile,
	customer *entity.Customer,
	details []*entity.InvoiceDetail,
	fiscal *entity.FiscalDocument,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura Electrónica", true).
		WithAuthor(profile.LegalName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(invoice, profile))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emitterRow(profile))
	m.AddRows(receiverRow(customer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableDetailRows(details) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(invoice))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range fiscalFooterRows(fiscal) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// headerRow: razón social + RUC (izq) y número + fecha (der).
func headerRow(invoice *entity.Invoice, profile *entity.IssuerProfile) core.Row {
	title := "FACTURA ELECTRÓNICA"
	switch invoice.Kind {
	case entity.DocKindCreditNote:
		title = "NOTA DE CRÉDITO ELECTRÓNICA"
	case entity.DocKindDebitNote:
		title = "NOTA DE DÉBITO ELECTRÓNICA"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(profile.LegalName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("RUC: %s DV %s", profile.RUC, profile.DV), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+invoice.Date.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func emitterRow(profile *entity.IssuerProfile) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Dirección: %s   |   Sucursal: %s   |   Punto: %s",
				nonEmpty(profile.Address, "—"), profile.BranchCode, profile.POSCode,
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func receiverRow(customer *entity.Customer) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(customer.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("RUC/Cédula: %s   |   Email: %s   |   Tel: %s",
				customer.TaxID,
				nonEmpty(customer.Email, "—"),
				nonEmpty(customer.Phone, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("ITBMS%", 1, align.Center),
		h("Total", 3, align.Right),
	)
}

func tableDetailRows(details []*entity.InvoiceDetail) []core.Row {
	result := make([]core.Row, 0, len(details))
	for _, d := range details {
		rate := d.TaxRate.Mul(hundred).StringFixed(0)
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				d.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				d.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"B/. "+d.UnitPrice.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				rate+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				"B/. "+d.Taxable.Add(d.Tax).StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func totalsRow(invoice *entity.Invoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}
	return row.New(26).Add(
		col.New(3),
		col.New(3).Add(
			label("Total neto:"),
			label("ITBMS:"),
			grandLabel("TOTAL A PAGAR:"),
		),
		col.New(3).Add(
			value("B/. "+invoice.NetTotal.StringFixed(2)),
			value("B/. "+invoice.TaxTotal.StringFixed(2)),
			grandValue("B/. "+invoice.GrandTotal.StringFixed(2)),
		),
		col.New(3),
	)
}

// fiscalFooterRows: CUFE partido + código QR de consulta + leyenda legal.
func fiscalFooterRows(fiscal *entity.FiscalDocument) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN FISCAL DGI", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if fiscal.FiscalCode != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("CUFE (Código Único de Factura Electrónica):", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
		)))
		for _, chunk := range splitEvery(fiscal.FiscalCode, 80) {
			rows = append(rows, row.New(4).Add(col.New(12).Add(
				text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
			)))
		}
	}

	rows = append(rows, row.New(3))

	if fiscal.VerificationURL != "" {
		rows = append(rows, row.New(50).Add(
			col.New(4).Add(code.NewQr(fiscal.VerificationURL, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("Escanee el código QR para consultar este documento", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("en el portal DGI-FEP.", props.Text{
					Size: 8, Top: 9, Left: 3, Color: colorGray,
				}),
				text.New("Comprobante Auxiliar de", props.Text{
					Style: fontstyle.Bold, Size: 10, Top: 22,
					Left: 3, Color: colorPrimary,
				}),
				text.New("FACTURA ELECTRÓNICA", props.Text{
					Style: fontstyle.Bold, Size: 10, Top: 28,
					Left: 3, Color: colorPrimary,
				}),
			),
		))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Documento fiscal electrónico autorizado por la Dirección General de Ingresos "+
				"mediante el Sistema de Facturación Electrónica de Panamá. "+
				"Conserve este comprobante como soporte fiscal.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))
	return rows
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func splitEvery(s string, n int) []string {
	if n <= 0 || len(s) <= n {
		return []string{s}
	}
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}
