package emission

import (
	"context"
	"fmt"

	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
	"github.com/panafact/facturacion-api/pkg/pac"
)

// ReversalLinker garantiza que una nota de crédito/débito solo se emita si la
// factura que reversa tiene un FiscalDocument AUTORIZADO, y arrastra su
// referencia fiscal (CUFE + fecha de emisión) al payload. Es un guard puro,
// sin efectos: corre antes de cualquier llamada al PAC, de modo que una
// precondición fallida jamás consume un intento SIGNING.
type ReversalLinker struct {
	invoiceRepo repository.InvoiceRepository
	fiscalRepo  repository.FiscalDocumentRepository
}

// NewReversalLinker construye el guard.
func NewReversalLinker(invoiceRepo repository.InvoiceRepository, fiscalRepo repository.FiscalDocumentRepository) *ReversalLinker {
	return &ReversalLinker{invoiceRepo: invoiceRepo, fiscalRepo: fiscalRepo}
}

// RequireOriginalFiscalReference resuelve la referencia fiscal obligatoria de
// la nota. Errores: domain.ErrInvalidInput si la nota no referencia factura,
// domain.ErrNotFound si la factura no existe, domain.ErrMissingFiscalReference
// si la factura nunca fue autorizada.
func (l *ReversalLinker) RequireOriginalFiscalReference(ctx context.Context, note *entity.Invoice) (*pac.Reference, error) {
	if note.Kind != entity.DocKindCreditNote && note.Kind != entity.DocKindDebitNote {
		return nil, fmt.Errorf("%w: el documento %s no es una nota", domain.ErrInvalidInput, note.ID)
	}
	refID := note.RefInvoiceID
	if refID == "" {
		var err error
		refID, err = l.invoiceRepo.GetReferencedInvoiceID(ctx, note.ID)
		if err != nil {
			return nil, fmt.Errorf("buscar factura referenciada: %w", err)
		}
	}
	if refID == "" {
		return nil, fmt.Errorf("%w: la nota %s no referencia factura", domain.ErrInvalidInput, note.ID)
	}

	original, err := l.invoiceRepo.GetByID(ctx, refID)
	if err != nil {
		return nil, fmt.Errorf("cargar factura original: %w", err)
	}
	if original == nil {
		return nil, fmt.Errorf("%w: factura original %s", domain.ErrNotFound, refID)
	}
	if original.CompanyID != note.CompanyID {
		return nil, domain.ErrForbidden
	}

	fd, err := l.fiscalRepo.GetAuthorizedByInvoiceID(ctx, refID)
	if err != nil {
		return nil, fmt.Errorf("buscar documento fiscal de la factura original: %w", err)
	}
	if fd == nil || fd.FiscalCode == "" {
		return nil, fmt.Errorf("%w (factura %s)", domain.ErrMissingFiscalReference, refID)
	}
	return &pac.Reference{FiscalCode: fd.FiscalCode, IssueDate: original.Date}, nil
}
