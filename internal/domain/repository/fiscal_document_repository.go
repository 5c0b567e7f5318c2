package repository

import (
	"context"

	"github.com/panafact/facturacion-api/internal/domain/entity"
)

// FiscalDocumentRepository persiste los intentos de emisión fiscal.
// La tabla es append-only: las filas terminales nunca se reescriben; las
// actualizaciones de estado exigen el estado de origen (guard en el WHERE).
type FiscalDocumentRepository interface {
	Create(ctx context.Context, fd *entity.FiscalDocument) error
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)

	// UpdateStateFrom aplica todos los campos de fd con la condición de que
	// la fila esté en fromState. Devuelve domain.ErrConflict si la fila
	// cambió de estado entre la lectura y la escritura.
	UpdateStateFrom(ctx context.Context, fd *entity.FiscalDocument, fromState string) error

	// UpdateTransactionRef guarda la referencia del PAC sin tocar el estado
	// (para conciliar resultados ambiguos de proveedores asíncronos).
	UpdateTransactionRef(ctx context.Context, id, transactionRef string) error

	// GetAuthorizedByInvoiceID devuelve el FiscalDocument AUTORIZADO (o
	// ANULADO) del documento comercial, nil si no existe.
	GetAuthorizedByInvoiceID(ctx context.Context, invoiceID string) (*entity.FiscalDocument, error)

	// GetPendingByInvoiceID devuelve el intento en SIGNING más reciente del
	// documento comercial, nil si no hay intentos ambiguos.
	GetPendingByInvoiceID(ctx context.Context, invoiceID string) (*entity.FiscalDocument, error)

	// ListByInvoiceID devuelve todos los intentos, del más antiguo al más
	// reciente (pista de auditoría completa).
	ListByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.FiscalDocument, error)
}
