package repository

import (
	"context"
	"time"

	"github.com/panafact/facturacion-api/internal/domain/entity"
)

// InvoiceRepository persiste documentos comerciales (facturas y notas).
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	CreateDetail(ctx context.Context, detail *entity.InvoiceDetail) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error)

	// GetReferencedInvoiceID devuelve el ID de la factura que una nota de
	// crédito/débito reversa o ajusta; vacío si el documento no es una nota.
	GetReferencedInvoiceID(ctx context.Context, noteID string) (string, error)

	// UpdateFiscalFields estampa estado fiscal, CUFE y fecha de autorización.
	// Debe invocarse en la misma transacción que la transición del
	// FiscalDocument correspondiente.
	UpdateFiscalFields(ctx context.Context, invoiceID, fiscalStatus, fiscalCode string, authorizedAt *time.Time) error
}
