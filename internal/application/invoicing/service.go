// Package invoicing gestiona el ciclo comercial previo a la emisión fiscal:
// creación de facturas y notas con totales calculados por el motor de
// impuestos, consulta de documentos y generación del CAFE de los autorizados.
package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/panafact/facturacion-api/internal/application/emission"
	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
	"github.com/panafact/facturacion-api/internal/domain/tax"
	"github.com/panafact/facturacion-api/pkg/logger"
)

// LineInput es una línea de entrada para crear un documento comercial.
type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal
}

// CreateInvoiceInput son los datos para crear una factura o nota.
type CreateInvoiceInput struct {
	CustomerID   string
	Kind         string // DocKind*: INVOICE | CREDIT_NOTE | DEBIT_NOTE
	Number       string
	Date         time.Time // cero usa la fecha actual
	RefInvoiceID string    // obligatorio para notas
	Lines        []LineInput
}

// Service implementa los casos de uso comerciales.
type Service struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	profileRepo  repository.IssuerProfileRepository
	fiscalRepo   repository.FiscalDocumentRepository
	txRunner     emission.TxRunner
	renderer     ReceiptRenderer
	log          *logger.Logger
}

// NewService construye el servicio.
func NewService(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	profileRepo repository.IssuerProfileRepository,
	fiscalRepo repository.FiscalDocumentRepository,
	txRunner emission.TxRunner,
	renderer ReceiptRenderer,
	log *logger.Logger,
) *Service {
	return &Service{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		profileRepo:  profileRepo,
		fiscalRepo:   fiscalRepo,
		txRunner:     txRunner,
		renderer:     renderer,
		log:          log,
	}
}

// CreateInvoice valida la entrada, calcula los totales con el motor de
// impuestos y persiste cabecera y detalle en una transacción. El documento
// nace PENDING: la emisión fiscal es un paso posterior y explícito.
func (s *Service) CreateInvoice(ctx context.Context, companyID string, in CreateInvoiceInput) (*entity.Invoice, error) {
	switch in.Kind {
	case entity.DocKindInvoice, entity.DocKindCreditNote, entity.DocKindDebitNote:
	default:
		return nil, fmt.Errorf("%w: tipo de documento desconocido %q", domain.ErrInvalidInput, in.Kind)
	}
	if in.Number == "" {
		return nil, fmt.Errorf("%w: número de documento requerido", domain.ErrInvalidInput)
	}

	customer, err := s.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("cargar cliente: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, in.CustomerID)
	}
	if customer.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	isNote := in.Kind == entity.DocKindCreditNote || in.Kind == entity.DocKindDebitNote
	if isNote {
		if in.RefInvoiceID == "" {
			return nil, fmt.Errorf("%w: la nota debe referenciar la factura original", domain.ErrMissingFiscalReference)
		}
		orig, err := s.invoiceRepo.GetByID(ctx, in.RefInvoiceID)
		if err != nil {
			return nil, fmt.Errorf("cargar factura referenciada: %w", err)
		}
		if orig == nil {
			return nil, fmt.Errorf("%w: factura referenciada %s", domain.ErrNotFound, in.RefInvoiceID)
		}
		if orig.CompanyID != companyID {
			return nil, domain.ErrForbidden
		}
	} else if in.RefInvoiceID != "" {
		return nil, fmt.Errorf("%w: una factura no lleva documento de referencia", domain.ErrInvalidInput)
	}

	items := make([]tax.LineItem, len(in.Lines))
	for i, l := range in.Lines {
		items[i] = tax.LineItem{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Discount:    l.Discount,
			Rate:        l.TaxRate,
		}
	}
	breakdown, err := tax.Compute(items)
	if err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	now := time.Now()
	inv := &entity.Invoice{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		CustomerID:   in.CustomerID,
		Kind:         in.Kind,
		Number:       in.Number,
		Date:         date,
		RefInvoiceID: in.RefInvoiceID,
		NetTotal:     breakdown.Taxable,
		TaxTotal:     breakdown.Tax,
		GrandTotal:   breakdown.Total,
		FiscalStatus: entity.InvoiceFiscalPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.txRunner.RunEmission(ctx, func(_ repository.FiscalDocumentRepository, invoiceRepo repository.InvoiceRepository) error {
		if err := invoiceRepo.Create(ctx, inv); err != nil {
			return err
		}
		for i, l := range in.Lines {
			taxable := l.Quantity.Mul(l.UnitPrice).Sub(l.Discount).Round(2)
			det := &entity.InvoiceDetail{
				ID:          uuid.New().String(),
				InvoiceID:   inv.ID,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Discount:    l.Discount,
				TaxRate:     l.TaxRate,
				Taxable:     taxable,
				Tax:         taxable.Mul(l.TaxRate).Round(2),
			}
			if err := invoiceRepo.CreateDetail(ctx, det); err != nil {
				return fmt.Errorf("línea %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persistir documento: %w", err)
	}

	s.log.Info().
		Str("invoice_id", inv.ID).
		Str("kind", inv.Kind).
		Str("number", inv.Number).
		Str("total", inv.GrandTotal.StringFixed(2)).
		Msg("documento comercial creado")
	return inv, nil
}

// GetInvoice devuelve el documento comercial con su detalle.
func (s *Service) GetInvoice(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, []*entity.InvoiceDetail, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("cargar documento: %w", err)
	}
	if inv == nil {
		return nil, nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, invoiceID)
	}
	if inv.CompanyID != companyID {
		return nil, nil, domain.ErrForbidden
	}
	details, err := s.invoiceRepo.GetDetailsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("cargar detalle: %w", err)
	}
	return inv, details, nil
}

// Receipt genera el PDF del CAFE del documento. Solo los documentos con un
// FiscalDocument autorizado (o autorizado y luego anulado) tienen CAFE.
func (s *Service) Receipt(ctx context.Context, companyID, invoiceID string) ([]byte, error) {
	inv, details, err := s.GetInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}

	fd, err := s.fiscalRepo.GetAuthorizedByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("buscar documento fiscal: %w", err)
	}
	if fd == nil {
		return nil, fmt.Errorf("%w: el documento %s no tiene emisión autorizada", domain.ErrConflict, invoiceID)
	}

	profile, err := s.profileRepo.GetActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("cargar perfil de emisor: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: la empresa %s no tiene perfil de emisor activo", domain.ErrConfiguration, companyID)
	}

	customer, err := s.customerRepo.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("cargar cliente: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, inv.CustomerID)
	}

	pdf, err := s.renderer.Render(ctx, inv, profile, customer, details, fd)
	if err != nil {
		return nil, fmt.Errorf("generar CAFE: %w", err)
	}
	return pdf, nil
}
