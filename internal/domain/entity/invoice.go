package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estado fiscal del documento comercial (campos estampados por emisión).
const (
	InvoiceFiscalPending    = "PENDING"    // Sin emisión, o con intento pendiente/rechazado
	InvoiceFiscalAuthorized = "AUTHORIZED" // Emitido y autorizado; CUFE estampado
	InvoiceFiscalAnnulled   = "ANNULLED"   // Autorizado y luego anulado ante el PAC
)

// Invoice representa la cabecera de un documento comercial: factura, nota de
// crédito o nota de débito (Kind según constantes DocKind*). Las notas llevan
// en RefInvoiceID la factura que reversan o ajustan.
type Invoice struct {
	ID           string
	CompanyID    string
	CustomerID   string
	Kind         string // DocKind*: INVOICE | CREDIT_NOTE | DEBIT_NOTE
	Number       string
	Date         time.Time
	RefInvoiceID string // obligatorio para notas; vacío en facturas
	NetTotal     decimal.Decimal
	TaxTotal     decimal.Decimal
	GrandTotal   decimal.Decimal

	// Campos fiscales; solo los escribe el servicio de emisión.
	FiscalStatus       string
	FiscalCode         string // CUFE del FiscalDocument autorizado
	FiscalAuthorizedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceDetail representa una línea del documento comercial. Descuento y
// tasa de impuesto son explícitos por línea; no existe tasa por defecto.
type InvoiceDetail struct {
	ID          string
	InvoiceID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal // descuento pre-impuesto de la línea, en monto
	TaxRate     decimal.Decimal // fracción en [0,1], ej: 0.07
	Taxable     decimal.Decimal // base gravable redondeada de la línea
	Tax         decimal.Decimal // impuesto redondeado de la línea
}
