package emission_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
	"github.com/panafact/facturacion-api/pkg/pac"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria: mismo contrato que los repos de postgres, sin DB.
// ──────────────────────────────────────────────────────────────────────────────

type fakeStore struct {
	mu        sync.Mutex
	profiles  map[string]*entity.IssuerProfile // companyID → perfil activo
	invoices  map[string]*entity.Invoice
	details   map[string][]*entity.InvoiceDetail
	customers map[string]*entity.Customer
	fiscal    []*entity.FiscalDocument
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:  map[string]*entity.IssuerProfile{},
		invoices:  map[string]*entity.Invoice{},
		details:   map[string][]*entity.InvoiceDetail{},
		customers: map[string]*entity.Customer{},
	}
}

// ── IssuerProfileRepository ──

type fakeProfileRepo struct{ s *fakeStore }

func (r *fakeProfileRepo) Upsert(_ context.Context, p *entity.IssuerProfile) error {
	r.s.profiles[p.CompanyID] = p
	return nil
}

func (r *fakeProfileRepo) GetActiveByCompany(_ context.Context, companyID string) (*entity.IssuerProfile, error) {
	p := r.s.profiles[companyID]
	if p == nil || !p.Active {
		return nil, nil
	}
	return p, nil
}

// ── InvoiceRepository ──

type fakeInvoiceRepo struct{ s *fakeStore }

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.invoices[inv.ID] = inv
	return nil
}

func (r *fakeInvoiceRepo) CreateDetail(_ context.Context, d *entity.InvoiceDetail) error {
	r.s.details[d.InvoiceID] = append(r.s.details[d.InvoiceID], d)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	return r.s.invoices[id], nil
}

func (r *fakeInvoiceRepo) GetDetailsByInvoiceID(_ context.Context, id string) ([]*entity.InvoiceDetail, error) {
	return r.s.details[id], nil
}

func (r *fakeInvoiceRepo) GetReferencedInvoiceID(_ context.Context, noteID string) (string, error) {
	if inv := r.s.invoices[noteID]; inv != nil {
		return inv.RefInvoiceID, nil
	}
	return "", nil
}

func (r *fakeInvoiceRepo) UpdateFiscalFields(_ context.Context, invoiceID, status, code string, authorizedAt *time.Time) error {
	inv := r.s.invoices[invoiceID]
	if inv == nil {
		return domain.ErrNotFound
	}
	inv.FiscalStatus = status
	inv.FiscalCode = code
	inv.FiscalAuthorizedAt = authorizedAt
	return nil
}

// ── CustomerRepository ──

type fakeCustomerRepo struct{ s *fakeStore }

func (r *fakeCustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.s.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	return r.s.customers[id], nil
}

func (r *fakeCustomerRepo) ListByCompany(_ context.Context, _ string) ([]*entity.Customer, error) {
	return nil, nil
}

// ── FiscalDocumentRepository ──

type fakeFiscalRepo struct{ s *fakeStore }

func (r *fakeFiscalRepo) Create(_ context.Context, fd *entity.FiscalDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *fd
	r.s.fiscal = append(r.s.fiscal, &cp)
	return nil
}

func (r *fakeFiscalRepo) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, fd := range r.s.fiscal {
		if fd.ID == id {
			cp := *fd
			return &cp, nil
		}
	}
	return nil, nil
}

// UpdateStateFrom reproduce el guard de estado del repo real: la fila debe
// seguir en fromState para aceptar la escritura.
func (r *fakeFiscalRepo) UpdateStateFrom(_ context.Context, fd *entity.FiscalDocument, fromState string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, row := range r.s.fiscal {
		if row.ID == fd.ID {
			if row.State != fromState {
				return domain.ErrConflict
			}
			cp := *fd
			r.s.fiscal[i] = &cp
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeFiscalRepo) UpdateTransactionRef(_ context.Context, id, ref string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.fiscal {
		if row.ID == id {
			row.TransactionRef = ref
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeFiscalRepo) GetAuthorizedByInvoiceID(_ context.Context, invoiceID string) (*entity.FiscalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, fd := range r.s.fiscal {
		if fd.InvoiceID == invoiceID &&
			(fd.State == entity.FiscalStateAuthorized || fd.State == entity.FiscalStateAnnulled) {
			cp := *fd
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeFiscalRepo) GetPendingByInvoiceID(_ context.Context, invoiceID string) (*entity.FiscalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.fiscal) - 1; i >= 0; i-- {
		fd := r.s.fiscal[i]
		if fd.InvoiceID == invoiceID && fd.State == entity.FiscalStateSigning {
			cp := *fd
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeFiscalRepo) ListByInvoiceID(_ context.Context, invoiceID string) ([]*entity.FiscalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, fd := range r.s.fiscal {
		if fd.InvoiceID == invoiceID {
			cp := *fd
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ── TxRunner y locker ──

type fakeTxRunner struct {
	fiscalRepo  *fakeFiscalRepo
	invoiceRepo *fakeInvoiceRepo
}

func (r *fakeTxRunner) RunEmission(_ context.Context, fn func(
	repository.FiscalDocumentRepository, repository.InvoiceRepository) error) error {
	return fn(r.fiscalRepo, r.invoiceRepo)
}

type fakeLocker struct{ locks int }

func (l *fakeLocker) LockInvoice(_ context.Context, _ string) (func(), error) {
	l.locks++
	return func() {}, nil
}

// ── Adaptador scriptable ──

type scriptedAdapter struct {
	name        string
	sendResult  *pac.Result
	sendErr     error
	statusResult *pac.Result
	statusErr   error
	voidResult  *pac.Result
	voidErr     error

	sendCalls   int
	statusCalls int
	voidCalls   int
	lastDoc     *pac.NormalizedDocument
}

func (a *scriptedAdapter) Name() string { return a.name }

func (a *scriptedAdapter) SignAndSend(_ context.Context, doc *pac.NormalizedDocument) (*pac.Result, error) {
	a.sendCalls++
	a.lastDoc = doc
	return a.sendResult, a.sendErr
}

func (a *scriptedAdapter) CheckStatus(_ context.Context, _ string) (*pac.Result, error) {
	a.statusCalls++
	return a.statusResult, a.statusErr
}

func (a *scriptedAdapter) VoidDocument(_ context.Context, _, _ string) (*pac.Result, error) {
	a.voidCalls++
	return a.voidResult, a.voidErr
}

// ── Datos de prueba ──

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

const (
	tCompanyID  = "co-1"
	tCustomerID = "cu-1"
	tInvoiceID  = "inv-1"
	tProvider   = "pac-fake"
)

func seedTenant(s *fakeStore) {
	s.profiles[tCompanyID] = &entity.IssuerProfile{
		ID:          "prof-1",
		CompanyID:   tCompanyID,
		RUC:         "155658547",
		DV:          "01",
		LegalName:   "Comercial Istmo S.A.",
		BranchCode:  "0000",
		POSCode:     "001",
		Provider:    tProvider,
		Environment: entity.EnvironmentTest,
		Active:      true,
	}
	s.customers[tCustomerID] = &entity.Customer{
		ID: tCustomerID, CompanyID: tCompanyID, Name: "Cliente Uno", TaxID: "8-123-456",
	}
}

func seedInvoice(s *fakeStore, id, kind, refID string) {
	s.invoices[id] = &entity.Invoice{
		ID:           id,
		CompanyID:    tCompanyID,
		CustomerID:   tCustomerID,
		Kind:         kind,
		Number:       "0000000001",
		Date:         time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		RefInvoiceID: refID,
		FiscalStatus: entity.InvoiceFiscalPending,
	}
	s.details[id] = []*entity.InvoiceDetail{
		{ID: id + "-d1", InvoiceID: id, Description: "Servicio", Quantity: dec("2"), UnitPrice: dec("10"), TaxRate: dec("0.07")},
	}
}
