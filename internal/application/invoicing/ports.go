package invoicing

import (
	"context"

	"github.com/panafact/facturacion-api/internal/domain/entity"
)

// ReceiptRenderer genera la representación gráfica (CAFE) de un documento
// fiscal autorizado.
type ReceiptRenderer interface {
	Render(
		ctx context.Context,
		invoice *entity.Invoice,
		profile *entity.IssuerProfile,
		customer *entity.Customer,
		details []*entity.InvoiceDetail,
		fiscal *entity.FiscalDocument,
	) ([]byte, error)
}
