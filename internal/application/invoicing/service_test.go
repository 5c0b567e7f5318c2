package invoicing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panafact/facturacion-api/internal/application/invoicing"
	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
	"github.com/panafact/facturacion-api/pkg/logger"
)

// Fakes mínimos en memoria, mismo contrato que los repos de postgres.

type memStore struct {
	invoices  map[string]*entity.Invoice
	details   map[string][]*entity.InvoiceDetail
	customers map[string]*entity.Customer
	profiles  map[string]*entity.IssuerProfile
	fiscal    []*entity.FiscalDocument
}

type memInvoiceRepo struct{ s *memStore }

func (r *memInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.invoices[inv.ID] = inv
	return nil
}

func (r *memInvoiceRepo) CreateDetail(_ context.Context, d *entity.InvoiceDetail) error {
	r.s.details[d.InvoiceID] = append(r.s.details[d.InvoiceID], d)
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	return r.s.invoices[id], nil
}

func (r *memInvoiceRepo) GetDetailsByInvoiceID(_ context.Context, id string) ([]*entity.InvoiceDetail, error) {
	return r.s.details[id], nil
}

func (r *memInvoiceRepo) GetReferencedInvoiceID(_ context.Context, noteID string) (string, error) {
	if inv := r.s.invoices[noteID]; inv != nil {
		return inv.RefInvoiceID, nil
	}
	return "", nil
}

func (r *memInvoiceRepo) UpdateFiscalFields(_ context.Context, invoiceID, status, code string, authorizedAt *time.Time) error {
	inv := r.s.invoices[invoiceID]
	if inv == nil {
		return domain.ErrNotFound
	}
	inv.FiscalStatus = status
	inv.FiscalCode = code
	inv.FiscalAuthorizedAt = authorizedAt
	return nil
}

type memCustomerRepo struct{ s *memStore }

func (r *memCustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.s.customers[c.ID] = c
	return nil
}

func (r *memCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	return r.s.customers[id], nil
}

func (r *memCustomerRepo) ListByCompany(_ context.Context, _ string) ([]*entity.Customer, error) {
	return nil, nil
}

type memProfileRepo struct{ s *memStore }

func (r *memProfileRepo) Upsert(_ context.Context, p *entity.IssuerProfile) error {
	r.s.profiles[p.CompanyID] = p
	return nil
}

func (r *memProfileRepo) GetActiveByCompany(_ context.Context, companyID string) (*entity.IssuerProfile, error) {
	return r.s.profiles[companyID], nil
}

type memFiscalRepo struct{ s *memStore }

func (r *memFiscalRepo) Create(_ context.Context, fd *entity.FiscalDocument) error {
	r.s.fiscal = append(r.s.fiscal, fd)
	return nil
}

func (r *memFiscalRepo) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	for _, fd := range r.s.fiscal {
		if fd.ID == id {
			return fd, nil
		}
	}
	return nil, nil
}

func (r *memFiscalRepo) UpdateStateFrom(_ context.Context, _ *entity.FiscalDocument, _ string) error {
	return nil
}

func (r *memFiscalRepo) UpdateTransactionRef(_ context.Context, _, _ string) error { return nil }

func (r *memFiscalRepo) GetAuthorizedByInvoiceID(_ context.Context, invoiceID string) (*entity.FiscalDocument, error) {
	for _, fd := range r.s.fiscal {
		if fd.InvoiceID == invoiceID &&
			(fd.State == entity.FiscalStateAuthorized || fd.State == entity.FiscalStateAnnulled) {
			return fd, nil
		}
	}
	return nil, nil
}

func (r *memFiscalRepo) GetPendingByInvoiceID(_ context.Context, _ string) (*entity.FiscalDocument, error) {
	return nil, nil
}

func (r *memFiscalRepo) ListByInvoiceID(_ context.Context, _ string) ([]*entity.FiscalDocument, error) {
	return nil, nil
}

type memTxRunner struct {
	fiscalRepo  *memFiscalRepo
	invoiceRepo *memInvoiceRepo
}

func (r *memTxRunner) RunEmission(_ context.Context, fn func(
	repository.FiscalDocumentRepository, repository.InvoiceRepository) error) error {
	return fn(r.fiscalRepo, r.invoiceRepo)
}

type stubRenderer struct {
	out      []byte
	err      error
	lastCUFE string
}

func (r *stubRenderer) Render(
	_ context.Context,
	_ *entity.Invoice,
	_ *entity.IssuerProfile,
	_ *entity.Customer,
	_ []*entity.InvoiceDetail,
	fiscal *entity.FiscalDocument,
) ([]byte, error) {
	r.lastCUFE = fiscal.FiscalCode
	return r.out, r.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type testEnv struct {
	store    *memStore
	svc      *invoicing.Service
	renderer *stubRenderer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := &memStore{
		invoices:  map[string]*entity.Invoice{},
		details:   map[string][]*entity.InvoiceDetail{},
		customers: map[string]*entity.Customer{},
		profiles:  map[string]*entity.IssuerProfile{},
	}
	invoiceRepo := &memInvoiceRepo{s: store}
	fiscalRepo := &memFiscalRepo{s: store}
	renderer := &stubRenderer{out: []byte("%PDF-1.7 fake")}
	svc := invoicing.NewService(
		invoiceRepo,
		&memCustomerRepo{s: store},
		&memProfileRepo{s: store},
		fiscalRepo,
		&memTxRunner{fiscalRepo: fiscalRepo, invoiceRepo: invoiceRepo},
		renderer,
		logger.New(logger.Config{Env: "development", Level: "error"}),
	)
	store.customers["cu-1"] = &entity.Customer{
		ID: "cu-1", CompanyID: "co-1", Name: "Cliente Uno", TaxID: "8-123-456",
	}
	store.profiles["co-1"] = &entity.IssuerProfile{
		ID: "prof-1", CompanyID: "co-1", RUC: "155658547", DV: "01",
		LegalName: "Comercial Istmo S.A.", BranchCode: "0000", POSCode: "001",
		Provider: "pac-fake", Environment: entity.EnvironmentTest, Active: true,
	}
	return &testEnv{store: store, svc: svc, renderer: renderer}
}

func validInput() invoicing.CreateInvoiceInput {
	return invoicing.CreateInvoiceInput{
		CustomerID: "cu-1",
		Kind:       entity.DocKindInvoice,
		Number:     "0000000042",
		Lines: []invoicing.LineInput{
			{Description: "Servicio técnico", Quantity: dec("2"), UnitPrice: dec("10"), TaxRate: dec("0.07")},
			{Description: "Repuesto", Quantity: dec("1"), UnitPrice: dec("5.50"), Discount: dec("0.50"), TaxRate: dec("0.07")},
		},
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	env := newTestEnv(t)

	inv, err := env.svc.CreateInvoice(context.Background(), "co-1", validInput())
	require.NoError(t, err)

	// 2×10 = 20.00 y 1×5.50−0.50 = 5.00; ITBMS 7% por línea: 1.40 + 0.35.
	assert.Equal(t, "25.00", inv.NetTotal.StringFixed(2))
	assert.Equal(t, "1.75", inv.TaxTotal.StringFixed(2))
	assert.Equal(t, "26.75", inv.GrandTotal.StringFixed(2))
	assert.Equal(t, entity.InvoiceFiscalPending, inv.FiscalStatus)

	details := env.store.details[inv.ID]
	require.Len(t, details, 2)
	assert.Equal(t, "20.00", details[0].Taxable.StringFixed(2))
	assert.Equal(t, "1.40", details[0].Tax.StringFixed(2))
	assert.Equal(t, "5.00", details[1].Taxable.StringFixed(2))
	assert.Equal(t, "0.35", details[1].Tax.StringFixed(2))
}

func TestCreateInvoiceValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := validInput()
	in.Kind = "RECIBO"
	_, err := env.svc.CreateInvoice(ctx, "co-1", in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in = validInput()
	in.Number = ""
	_, err = env.svc.CreateInvoice(ctx, "co-1", in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in = validInput()
	in.Lines = nil
	_, err = env.svc.CreateInvoice(ctx, "co-1", in)
	assert.ErrorIs(t, err, domain.ErrInvalidLineItems)

	in = validInput()
	in.CustomerID = "cu-nope"
	_, err = env.svc.CreateInvoice(ctx, "co-1", in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Una factura simple no lleva referencia.
	in = validInput()
	in.RefInvoiceID = "inv-x"
	_, err = env.svc.CreateInvoice(ctx, "co-1", in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateInvoiceCrossTenant(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateInvoice(context.Background(), "co-otra", validInput())
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, env.store.invoices)
}

func TestCreateCreditNote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	orig, err := env.svc.CreateInvoice(ctx, "co-1", validInput())
	require.NoError(t, err)

	in := validInput()
	in.Kind = entity.DocKindCreditNote
	in.Number = "0000000043"
	in.RefInvoiceID = orig.ID
	note, err := env.svc.CreateInvoice(ctx, "co-1", in)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, note.RefInvoiceID)
}

func TestCreateCreditNoteRequiresReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := validInput()
	in.Kind = entity.DocKindCreditNote
	_, err := env.svc.CreateInvoice(ctx, "co-1", in)
	assert.ErrorIs(t, err, domain.ErrMissingFiscalReference)

	in.RefInvoiceID = "inv-nope"
	_, err = env.svc.CreateInvoice(ctx, "co-1", in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inv, err := env.svc.CreateInvoice(ctx, "co-1", validInput())
	require.NoError(t, err)

	got, details, err := env.svc.GetInvoice(ctx, "co-1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Len(t, details, 2)

	_, _, err = env.svc.GetInvoice(ctx, "co-otra", inv.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, _, err = env.svc.GetInvoice(ctx, "co-1", "inv-nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceiptRequiresAuthorizedDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inv, err := env.svc.CreateInvoice(ctx, "co-1", validInput())
	require.NoError(t, err)

	_, err = env.svc.Receipt(ctx, "co-1", inv.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReceiptRendersAuthorizedDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inv, err := env.svc.CreateInvoice(ctx, "co-1", validInput())
	require.NoError(t, err)

	env.store.fiscal = append(env.store.fiscal, &entity.FiscalDocument{
		ID:        "fd-1",
		CompanyID: "co-1",
		InvoiceID: inv.ID,
		State:     entity.FiscalStateAuthorized,
		FiscalCode: "FE0120155658547000000010000000042abcdef0123456789",
	})

	pdf, err := env.svc.Receipt(ctx, "co-1", inv.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "FE0120155658547000000010000000042abcdef0123456789", env.renderer.lastCUFE)
}
