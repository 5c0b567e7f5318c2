// Package emission orquesta la emisión de documentos fiscales electrónicos:
// valida precondiciones, construye el payload normalizado con el motor de
// impuestos, resuelve el adaptador PAC del tenant, interpreta el resultado y
// persiste las transiciones del FiscalDocument junto con los campos fiscales
// del documento comercial.
package emission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
	"github.com/panafact/facturacion-api/internal/domain/tax"
	"github.com/panafact/facturacion-api/pkg/logger"
	"github.com/panafact/facturacion-api/pkg/pac"
)

// Service es el servicio de emisión fiscal.
type Service struct {
	profileRepo  repository.IssuerProfileRepository
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	fiscalRepo   repository.FiscalDocumentRepository
	txRunner     TxRunner
	locker       InvoiceLocker
	registry     *pac.Registry
	reversal     *ReversalLinker
	callTimeout  time.Duration
	log          *logger.Logger
}

// NewService construye el servicio. callTimeout acota la llamada externa al
// PAC; cero usa 45 s.
func NewService(
	profileRepo repository.IssuerProfileRepository,
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	fiscalRepo repository.FiscalDocumentRepository,
	txRunner TxRunner,
	locker InvoiceLocker,
	registry *pac.Registry,
	reversal *ReversalLinker,
	callTimeout time.Duration,
	log *logger.Logger,
) *Service {
	if callTimeout <= 0 {
		callTimeout = 45 * time.Second
	}
	return &Service{
		profileRepo:  profileRepo,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		fiscalRepo:   fiscalRepo,
		txRunner:     txRunner,
		locker:       locker,
		registry:     registry,
		reversal:     reversal,
		callTimeout:  callTimeout,
		log:          log,
	}
}

// Emit emite el documento comercial ante el PAC del tenant.
//
// Resultados:
//   - (fd, nil): autorizado; fd.FiscalCode trae el CUFE.
//   - (fd existente, domain.ErrAlreadyIssued): ya había un AUTORIZADO.
//   - (fd, *domain.ProviderRejectedError): rechazo definitivo; el documento
//     comercial sigue re-emitible.
//   - (fd, *domain.PendingReconciliationError): resultado ambiguo; fd queda
//     en SIGNING hasta Reconcile o revisión manual.
//   - (nil, error): precondición fallida sin efectos persistidos.
func (s *Service) Emit(ctx context.Context, companyID, invoiceID string) (*entity.FiscalDocument, error) {
	// Serializar emisiones concurrentes del mismo documento: el chequeo de
	// "ya emitido" debe ser libre de carreras.
	release, err := s.locker.LockInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("bloquear documento %s: %w", invoiceID, err)
	}
	defer release()

	profile, err := s.profileRepo.GetActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("cargar perfil de emisor: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: la empresa %s no tiene perfil de emisor activo", domain.ErrConfiguration, companyID)
	}

	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar documento comercial: %w", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, invoiceID)
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	// Idempotencia: si ya existe un AUTORIZADO se devuelve ese resultado,
	// nunca se emite un duplicado.
	if existing, err := s.fiscalRepo.GetAuthorizedByInvoiceID(ctx, invoiceID); err != nil {
		return nil, fmt.Errorf("buscar emisión previa: %w", err)
	} else if existing != nil {
		return existing, domain.ErrAlreadyIssued
	}

	// Un intento SIGNING ambiguo bloquea nuevos intentos hasta conciliar:
	// el sistema no adivina el desenlace de una llamada que no respondió.
	if pending, err := s.fiscalRepo.GetPendingByInvoiceID(ctx, invoiceID); err != nil {
		return nil, fmt.Errorf("buscar intentos pendientes: %w", err)
	} else if pending != nil {
		return pending, &domain.PendingReconciliationError{
			FiscalDocumentID: pending.ID,
			Cause:            errors.New("existe un intento previo sin resolver; usar Reconcile"),
		}
	}

	// Notas: referencia fiscal obligatoria, resuelta antes de tocar al PAC.
	var ref *pac.Reference
	if inv.Kind == entity.DocKindCreditNote || inv.Kind == entity.DocKindDebitNote {
		ref, err = s.reversal.RequireOriginalFiscalReference(ctx, inv)
		if err != nil {
			return nil, err
		}
	}

	details, err := s.invoiceRepo.GetDetailsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar detalle: %w", err)
	}
	items := make([]tax.LineItem, len(details))
	for i, det := range details {
		items[i] = tax.LineItem{
			Description: det.Description,
			Quantity:    det.Quantity,
			UnitPrice:   det.UnitPrice,
			Discount:    det.Discount,
			Rate:        det.TaxRate,
		}
	}
	breakdown, err := tax.Compute(items)
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("cargar cliente: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, inv.CustomerID)
	}

	doc := buildNormalized(profile, inv, customer, details, breakdown, ref)

	adapter, err := s.registry.Resolve(pacProfile(profile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	// Persistir el intento SIGNING antes de la llamada externa: si el
	// proceso muere a mitad de camino queda una traza conciliable.
	now := time.Now()
	fd := &entity.FiscalDocument{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		InvoiceID:   invoiceID,
		Kind:        inv.Kind,
		State:       entity.FiscalStateSigning,
		Provider:    profile.Provider,
		Environment: profile.Environment,
		IssuedAt:    inv.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.txRunner.RunEmission(ctx, func(fiscalRepo repository.FiscalDocumentRepository, _ repository.InvoiceRepository) error {
		return fiscalRepo.Create(ctx, fd)
	})
	if err != nil {
		return nil, fmt.Errorf("persistir intento de emisión: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	result, callErr := adapter.SignAndSend(callCtx, doc)

	switch {
	case callErr == nil && result != nil && result.Success:
		if err := s.settleAuthorized(ctx, fd, result); err != nil {
			return fd, err
		}
		s.log.Info().
			Str("invoice_id", invoiceID).
			Str("provider", profile.Provider).
			Str("fiscal_code", result.FiscalCode).
			Msg("documento autorizado")
		return fd, nil

	case callErr == nil && result != nil:
		// Rechazo definitivo del PAC: terminal, con razón auditada.
		if err := s.settleRejected(ctx, fd, result.FailureReason); err != nil {
			return fd, err
		}
		s.log.Warn().
			Str("invoice_id", invoiceID).
			Str("provider", profile.Provider).
			Str("reason", result.FailureReason).
			Msg("documento rechazado por el PAC")
		return fd, &domain.ProviderRejectedError{Provider: profile.Provider, Reason: result.FailureReason}

	default:
		// Transporte/timeout o procesamiento diferido: resultado ambiguo.
		// El FiscalDocument se queda en SIGNING; no se adivina el desenlace.
		if callErr == nil {
			callErr = errors.New("respuesta vacía del proveedor")
		}
		if result != nil && result.TransactionRef != "" {
			if uerr := s.fiscalRepo.UpdateTransactionRef(ctx, fd.ID, result.TransactionRef); uerr != nil {
				s.log.Error().Err(uerr).Str("fiscal_document_id", fd.ID).Msg("guardar referencia de transacción")
			} else {
				fd.TransactionRef = result.TransactionRef
			}
		}
		s.log.Error().Err(callErr).
			Str("invoice_id", invoiceID).
			Str("provider", profile.Provider).
			Str("fiscal_document_id", fd.ID).
			Msg("emisión sin resultado definitivo, pendiente de conciliación")
		return fd, &domain.PendingReconciliationError{FiscalDocumentID: fd.ID, Cause: callErr}
	}
}

// Reconcile consulta al PAC el estado de un intento SIGNING y, solo ante un
// resultado definitivo, aplica la transición terminal. Se invoca bajo
// demanda; no hay polling de fondo.
func (s *Service) Reconcile(ctx context.Context, companyID, fiscalDocID string) (*entity.FiscalDocument, error) {
	fd, err := s.fiscalRepo.GetByID(ctx, fiscalDocID)
	if err != nil {
		return nil, fmt.Errorf("cargar documento fiscal: %w", err)
	}
	if fd == nil {
		return nil, fmt.Errorf("%w: documento fiscal %s", domain.ErrNotFound, fiscalDocID)
	}
	if fd.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if fd.State != entity.FiscalStateSigning {
		// Ya resuelto: devolver el estado actual sin tocar nada.
		return fd, nil
	}

	adapter, err := s.resolveAdapter(ctx, companyID, fd.Provider)
	if err != nil {
		return fd, err
	}
	if fd.TransactionRef == "" {
		return fd, &domain.PendingReconciliationError{
			FiscalDocumentID: fd.ID,
			Cause:            errors.New("sin referencia de transacción; requiere revisión manual"),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	result, callErr := adapter.CheckStatus(callCtx, fd.TransactionRef)
	if callErr != nil {
		if errors.Is(callErr, pac.ErrStatusNotSupported) {
			return fd, fmt.Errorf("el proveedor %s no soporta consulta de estado: %w", fd.Provider, callErr)
		}
		return fd, &domain.PendingReconciliationError{FiscalDocumentID: fd.ID, Cause: callErr}
	}
	if result == nil {
		return fd, &domain.PendingReconciliationError{FiscalDocumentID: fd.ID, Cause: errors.New("respuesta vacía del proveedor")}
	}

	if result.Success {
		if err := s.settleAuthorized(ctx, fd, result); err != nil {
			return fd, err
		}
		return fd, nil
	}
	if result.FailureReason != "" {
		if err := s.settleRejected(ctx, fd, result.FailureReason); err != nil {
			return fd, err
		}
		return fd, &domain.ProviderRejectedError{Provider: fd.Provider, Reason: result.FailureReason}
	}
	// Ni autorizado ni rechazado: sigue en proceso.
	return fd, &domain.PendingReconciliationError{FiscalDocumentID: fd.ID, Cause: errors.New("el proveedor aún no resuelve el documento")}
}

// Void anula ante el PAC el documento fiscal AUTORIZADO de la factura.
func (s *Service) Void(ctx context.Context, companyID, invoiceID, reason string) (*entity.FiscalDocument, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: la anulación requiere una razón", domain.ErrInvalidInput)
	}
	release, err := s.locker.LockInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("bloquear documento %s: %w", invoiceID, err)
	}
	defer release()

	fd, err := s.fiscalRepo.GetAuthorizedByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("buscar documento fiscal: %w", err)
	}
	if fd == nil {
		return nil, fmt.Errorf("%w: la factura %s no tiene documento autorizado", domain.ErrNotFound, invoiceID)
	}
	if fd.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if fd.State != entity.FiscalStateAuthorized {
		return fd, fmt.Errorf("%w: el documento está en %s", domain.ErrConflict, fd.State)
	}

	adapter, err := s.resolveAdapter(ctx, companyID, fd.Provider)
	if err != nil {
		return fd, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	result, callErr := adapter.VoidDocument(callCtx, fd.FiscalCode, reason)
	if callErr != nil {
		return fd, &domain.PendingReconciliationError{FiscalDocumentID: fd.ID, Cause: callErr}
	}
	if !result.Success {
		return fd, &domain.ProviderRejectedError{Provider: fd.Provider, Reason: result.FailureReason}
	}

	err = s.txRunner.RunEmission(ctx, func(fiscalRepo repository.FiscalDocumentRepository, invoiceRepo repository.InvoiceRepository) error {
		fd.State = entity.FiscalStateAnnulled
		fd.UpdatedAt = time.Now()
		if err := fiscalRepo.UpdateStateFrom(ctx, fd, entity.FiscalStateAuthorized); err != nil {
			return err
		}
		return invoiceRepo.UpdateFiscalFields(ctx, invoiceID, entity.InvoiceFiscalAnnulled, fd.FiscalCode, fd.AuthorizedAt)
	})
	if err != nil {
		return fd, fmt.Errorf("persistir anulación: %w", err)
	}
	s.log.Info().Str("invoice_id", invoiceID).Str("fiscal_code", fd.FiscalCode).Msg("documento anulado")
	return fd, nil
}

// History devuelve todos los intentos de emisión del documento comercial,
// del más antiguo al más reciente.
func (s *Service) History(ctx context.Context, companyID, invoiceID string) ([]*entity.FiscalDocument, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar documento comercial: %w", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, invoiceID)
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return s.fiscalRepo.ListByInvoiceID(ctx, invoiceID)
}

// settleAuthorized aplica SIGNING → AUTHORIZED y estampa los campos fiscales
// del documento comercial en la misma transacción.
func (s *Service) settleAuthorized(ctx context.Context, fd *entity.FiscalDocument, result *pac.Result) error {
	if result.FiscalCode == "" {
		return fmt.Errorf("el proveedor reportó éxito sin código fiscal (documento %s)", fd.ID)
	}
	authorizedAt := result.AuthorizedAt
	if authorizedAt.IsZero() {
		authorizedAt = time.Now()
	}
	err := s.txRunner.RunEmission(ctx, func(fiscalRepo repository.FiscalDocumentRepository, invoiceRepo repository.InvoiceRepository) error {
		fd.State = entity.FiscalStateAuthorized
		fd.FiscalCode = result.FiscalCode
		fd.VerificationURL = result.VerificationURL
		fd.SignedXML = result.SignedBlob
		if result.TransactionRef != "" {
			fd.TransactionRef = result.TransactionRef
		}
		fd.AuthorizedAt = &authorizedAt
		fd.UpdatedAt = time.Now()
		if err := fiscalRepo.UpdateStateFrom(ctx, fd, entity.FiscalStateSigning); err != nil {
			return err
		}
		return invoiceRepo.UpdateFiscalFields(ctx, fd.InvoiceID, entity.InvoiceFiscalAuthorized, fd.FiscalCode, fd.AuthorizedAt)
	})
	if err != nil {
		return fmt.Errorf("persistir autorización: %w", err)
	}
	return nil
}

// settleRejected aplica SIGNING → REJECTED. El documento comercial no se
// toca: sigue siendo re-emitible con un payload corregido.
func (s *Service) settleRejected(ctx context.Context, fd *entity.FiscalDocument, reason string) error {
	err := s.txRunner.RunEmission(ctx, func(fiscalRepo repository.FiscalDocumentRepository, _ repository.InvoiceRepository) error {
		fd.State = entity.FiscalStateRejected
		fd.RejectionReason = reason
		fd.UpdatedAt = time.Now()
		return fiscalRepo.UpdateStateFrom(ctx, fd, entity.FiscalStateSigning)
	})
	if err != nil {
		return fmt.Errorf("persistir rechazo: %w", err)
	}
	return nil
}

func (s *Service) resolveAdapter(ctx context.Context, companyID, provider string) (pac.Adapter, error) {
	profile, err := s.profileRepo.GetActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("cargar perfil de emisor: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: la empresa %s no tiene perfil de emisor activo", domain.ErrConfiguration, companyID)
	}
	if provider != "" && profile.Provider != provider {
		// El intento se hizo con otro proveedor; conciliarlo con el actual
		// daría respuestas sin sentido.
		return nil, fmt.Errorf("%w: el intento fue con %q y el perfil actual usa %q", domain.ErrConfiguration, provider, profile.Provider)
	}
	adapter, err := s.registry.Resolve(pacProfile(profile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return adapter, nil
}

func pacProfile(p *entity.IssuerProfile) pac.Profile {
	return pac.Profile{
		Provider:    p.Provider,
		Environment: p.Environment,
		Credentials: p.Credentials,
		Active:      p.Active,
	}
}

func buildNormalized(
	profile *entity.IssuerProfile,
	inv *entity.Invoice,
	customer *entity.Customer,
	details []*entity.InvoiceDetail,
	breakdown *tax.Breakdown,
	ref *pac.Reference,
) *pac.NormalizedDocument {
	items := make([]pac.Item, len(details))
	for i, det := range details {
		taxable := det.Quantity.Mul(det.UnitPrice).Sub(det.Discount).Round(2)
		items[i] = pac.Item{
			Description: det.Description,
			Quantity:    det.Quantity,
			UnitPrice:   det.UnitPrice,
			Discount:    det.Discount,
			TaxRate:     det.TaxRate,
			Taxable:     taxable,
			Tax:         taxable.Mul(det.TaxRate).Round(2),
		}
	}
	byRate := make([]pac.RateTotal, len(breakdown.Groups))
	for i, g := range breakdown.Groups {
		byRate[i] = pac.RateTotal{Rate: g.Rate, Taxable: g.Taxable, Tax: g.Tax}
	}
	return &pac.NormalizedDocument{
		Kind:        inv.Kind,
		Number:      inv.Number,
		IssueDate:   inv.Date,
		Environment: profile.Environment,
		BranchCode:  profile.BranchCode,
		POSCode:     profile.POSCode,
		Issuer: pac.Party{
			TaxID:   profile.RUC,
			DV:      profile.DV,
			Name:    profile.LegalName,
			Address: profile.Address,
		},
		Buyer: pac.Party{
			TaxID:   customer.TaxID,
			Name:    customer.Name,
			Address: customer.Address,
			Email:   customer.Email,
		},
		Items: items,
		Totals: pac.Totals{
			Taxable: breakdown.Taxable,
			Tax:     breakdown.Tax,
			Total:   breakdown.Total,
			ByRate:  byRate,
		},
		Reference: ref,
	}
}
