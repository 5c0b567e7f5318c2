package entity

import "time"

// Estados del documento fiscal electrónico. La tabla es append-only: cada
// intento de emisión crea una fila nueva y las filas terminales no se
// reescriben.
const (
	FiscalStateDraft      = "DRAFT"      // Construido, sin enviar
	FiscalStateSigning    = "SIGNING"    // Enviado al PAC, sin resultado definitivo
	FiscalStateAuthorized = "AUTHORIZED" // Autorizado; FiscalCode (CUFE) asignado
	FiscalStateRejected   = "REJECTED"   // Rechazo definitivo del PAC
	FiscalStateAnnulled   = "ANNULLED"   // Autorizado y luego anulado
)

// Tipos de documento fiscal.
const (
	DocKindInvoice    = "INVOICE"
	DocKindCreditNote = "CREDIT_NOTE"
	DocKindDebitNote  = "DEBIT_NOTE"
)

// FiscalDocument representa un intento de emisión ante el PAC. Un documento
// comercial puede acumular varios (rechazos, reintentos), pero a lo sumo uno
// autorizado.
type FiscalDocument struct {
	ID          string
	CompanyID   string
	InvoiceID   string
	Kind        string // DocKind*
	State       string // FiscalState*
	Provider    string // nombre del adaptador PAC usado en el intento
	Environment string // Environment* del perfil al momento de emitir

	FiscalCode      string // CUFE asignado por la autoridad
	VerificationURL string // URL pública de consulta del documento
	SignedXML       string // XML firmado tal como se envió/recibió
	TransactionRef  string // referencia del PAC para conciliar intentos ambiguos
	RejectionReason string // razón del rechazo definitivo

	IssuedAt     time.Time  // fecha del documento comercial
	AuthorizedAt *time.Time // fecha de autorización de la DGI

	CreatedAt time.Time
	UpdatedAt time.Time
}

// fiscalTransitions define el grafo de transiciones válidas.
var fiscalTransitions = map[string][]string{
	FiscalStateDraft:      {FiscalStateSigning},
	FiscalStateSigning:    {FiscalStateAuthorized, FiscalStateRejected},
	FiscalStateAuthorized: {FiscalStateAnnulled},
}

// CanTransition informa si el cambio de estado from → to es válido.
func CanTransition(from, to string) bool {
	for _, next := range fiscalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal informa si el estado no admite más transiciones de emisión.
// ANNULLED es alcanzable desde AUTHORIZED, pero AUTHORIZED sigue siendo
// terminal para efectos de emisión: nunca vuelve a SIGNING.
func IsTerminal(state string) bool {
	switch state {
	case FiscalStateAuthorized, FiscalStateRejected, FiscalStateAnnulled:
		return true
	}
	return false
}
