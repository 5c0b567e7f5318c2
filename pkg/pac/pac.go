// Package pac define el contrato neutro con los Proveedores Autorizados de
// Certificación (PAC): el payload normalizado que construye el servicio de
// emisión y la interfaz que cada integración concreta debe satisfacer.
// Ningún nombre de campo específico de un proveedor vive aquí; cada adaptador
// re-moldea NormalizedDocument a su formato de cable.
package pac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrStatusNotSupported lo devuelve CheckStatus en adaptadores siempre
// síncronos, que no tienen consulta de estado.
var ErrStatusNotSupported = errors.New("pac: el proveedor no soporta consulta de estado")

// ErrProcessing lo devuelve SignAndSend cuando el proveedor aceptó el
// documento pero aún no lo resuelve (procesamiento asíncrono). El Result
// acompañante trae TransactionRef para conciliar con CheckStatus.
var ErrProcessing = errors.New("pac: documento aceptado, resultado pendiente")

// Profile es la vista del perfil de emisor que necesita un adaptador:
// proveedor seleccionado, ambiente y el blob opaco de credenciales.
type Profile struct {
	Provider    string
	Environment string // TEST | PROD
	Credentials json.RawMessage
	Active      bool
}

// Party identifica a un participante del documento (emisor o receptor).
type Party struct {
	TaxID   string // RUC o cédula
	DV      string // dígito verificador; vacío para cédulas
	Name    string
	Address string
	Email   string
}

// Item es una línea del documento con sus montos ya calculados y redondeados.
type Item struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal
	Taxable     decimal.Decimal
	Tax         decimal.Decimal
}

// RateTotal es el subtotal por tasa del desglose de impuestos.
type RateTotal struct {
	Rate    decimal.Decimal
	Taxable decimal.Decimal
	Tax     decimal.Decimal
}

// Totals son los totales del documento, consistentes con las líneas.
type Totals struct {
	Taxable decimal.Decimal
	Tax     decimal.Decimal
	Total   decimal.Decimal
	ByRate  []RateTotal
}

// Reference apunta al documento fiscal original que una nota de crédito o
// débito reversa/ajusta. Obligatoria en notas; validada antes de la emisión.
type Reference struct {
	FiscalCode string // CUFE del documento original autorizado
	IssueDate  time.Time
}

// NormalizedDocument es el payload agnóstico de proveedor que el servicio de
// emisión entrega al adaptador.
type NormalizedDocument struct {
	Kind        string // INVOICE | CREDIT_NOTE | DEBIT_NOTE
	Number      string
	IssueDate   time.Time
	Environment string // TEST | PROD
	BranchCode  string
	POSCode     string
	Issuer      Party
	Buyer       Party
	Items       []Item
	Totals      Totals
	Reference   *Reference // nil salvo en notas
}

// Result es la respuesta normalizada de cualquier operación del adaptador.
type Result struct {
	Success         bool
	FiscalCode      string // CUFE emitido por la autoridad
	VerificationURL string // localizador de consulta pública / QR
	SignedBlob      string // documento firmado (XML u otro), opaco
	TransactionRef  string // referencia del proveedor para CheckStatus
	AuthorizedAt    time.Time
	FailureReason   string // solo en rechazos definitivos
}

// Adapter es el contrato de cada integración PAC concreta.
//
// SignAndSend debe poder invocarse bajo un timeout acotado del caller y no
// debe reintentar internamente: la política de reintentos pertenece al
// servicio de emisión. Un error de transporte/timeout es un resultado
// ambiguo, nunca un rechazo.
type Adapter interface {
	// Name devuelve el nombre con el que el adaptador se registra.
	Name() string

	// SignAndSend firma y envía el documento normalizado. Devuelve un
	// Result definitivo (autorizado o rechazado), o ErrProcessing junto a
	// un Result con TransactionRef si el proveedor procesa en diferido.
	SignAndSend(ctx context.Context, doc *NormalizedDocument) (*Result, error)

	// CheckStatus consulta el estado de un envío previo por su referencia.
	// Adaptadores siempre síncronos devuelven ErrStatusNotSupported.
	CheckStatus(ctx context.Context, transactionRef string) (*Result, error)

	// VoidDocument anula un documento previamente autorizado.
	VoidDocument(ctx context.Context, fiscalCode, reason string) (*Result, error)
}
