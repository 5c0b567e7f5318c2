package emission

import (
	"context"

	"github.com/panafact/facturacion-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción que incluye los
// repositorios de documentos fiscales y comerciales. La transición terminal
// del FiscalDocument y el estampado de los campos fiscales del documento
// comercial confirman juntos o no confirman.
type TxRunner interface {
	RunEmission(ctx context.Context, fn func(
		fiscalRepo repository.FiscalDocumentRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}

// InvoiceLocker serializa emisiones concurrentes sobre el mismo documento
// comercial. El lock se sostiene durante toda la emisión, incluida la llamada
// externa: la fila SIGNING debe confirmar antes de invocar al PAC, así que un
// lock de fila dentro de una sola transacción no alcanza (en Postgres se usa
// un advisory lock por ID de documento).
type InvoiceLocker interface {
	// LockInvoice bloquea y devuelve la función de liberación. Bloquea al
	// segundo caller hasta que el primero libere.
	LockInvoice(ctx context.Context, invoiceID string) (release func(), err error)
}
