package emission_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panafact/facturacion-api/internal/application/emission"
	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
)

func newLinker(store *fakeStore) *emission.ReversalLinker {
	return emission.NewReversalLinker(&fakeInvoiceRepo{s: store}, &fakeFiscalRepo{s: store})
}

func authorizeInvoice(store *fakeStore, invoiceID, fiscalCode string) {
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	store.fiscal = append(store.fiscal, &entity.FiscalDocument{
		ID:           "fd-" + invoiceID,
		CompanyID:    tCompanyID,
		InvoiceID:    invoiceID,
		Kind:         entity.DocKindInvoice,
		State:        entity.FiscalStateAuthorized,
		FiscalCode:   fiscalCode,
		AuthorizedAt: &at,
	})
}

func TestReversalLinkerResolvesReference(t *testing.T) {
	store := newFakeStore()
	seedTenant(store)
	seedInvoice(store, "inv-orig", entity.DocKindInvoice, "")
	seedInvoice(store, "note-1", entity.DocKindCreditNote, "inv-orig")
	authorizeInvoice(store, "inv-orig", "FE-ORIG")

	ref, err := newLinker(store).RequireOriginalFiscalReference(context.Background(), store.invoices["note-1"])
	require.NoError(t, err)
	assert.Equal(t, "FE-ORIG", ref.FiscalCode)
	assert.Equal(t, store.invoices["inv-orig"].Date, ref.IssueDate)
}

func TestReversalLinkerRejectsNonNote(t *testing.T) {
	store := newFakeStore()
	seedTenant(store)
	seedInvoice(store, "inv-1", entity.DocKindInvoice, "")

	_, err := newLinker(store).RequireOriginalFiscalReference(context.Background(), store.invoices["inv-1"])
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReversalLinkerRequiresReference(t *testing.T) {
	store := newFakeStore()
	seedTenant(store)
	seedInvoice(store, "note-1", entity.DocKindCreditNote, "")

	_, err := newLinker(store).RequireOriginalFiscalReference(context.Background(), store.invoices["note-1"])
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReversalLinkerFallsBackToLookup(t *testing.T) {
	store := newFakeStore()
	seedTenant(store)
	seedInvoice(store, "inv-orig", entity.DocKindInvoice, "")
	seedInvoice(store, "note-1", entity.DocKindDebitNote, "inv-orig")
	authorizeInvoice(store, "inv-orig", "FE-ORIG")

	// La nota en memoria no trae la referencia cargada; debe resolverla el repo.
	note := *store.invoices["note-1"]
	note.RefInvoiceID = ""

	ref, err := newLinker(store).RequireOriginalFiscalReference(context.Background(), &note)
	require.NoError(t, err)
	assert.Equal(t, "FE-ORIG", ref.FiscalCode)
}

func TestReversalLinkerMissingOriginal(t *testing.T) {
	store := newFakeStore()
	seedTenant(store)
	seedInvoice(store, "note-1", entity.DocKindCreditNote, "inv-fantasma")

	_, err := newLinker(store).RequireOriginalFiscalReference(context.Background(), store.invoices["note-1"])
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReversalLinkerUnauthorizedOriginal(t *testing.T) {
	store := newFakeStore()
	seedTenant(store)
	seedInvoice(store, "inv-orig", entity.DocKindInvoice, "")
	seedInvoice(store, "note-1", entity.DocKindCreditNote, "inv-orig")

	_, err := newLinker(store).RequireOriginalFiscalReference(context.Background(), store.invoices["note-1"])
	require.ErrorIs(t, err, domain.ErrMissingFiscalReference)
}

func TestReversalLinkerCrossTenant(t *testing.T) {
	store := newFakeStore()
	seedTenant(store)
	seedInvoice(store, "inv-orig", entity.DocKindInvoice, "")
	store.invoices["inv-orig"].CompanyID = "co-otra"
	seedInvoice(store, "note-1", entity.DocKindCreditNote, "inv-orig")
	authorizeInvoice(store, "inv-orig", "FE-ORIG")

	_, err := newLinker(store).RequireOriginalFiscalReference(context.Background(), store.invoices["note-1"])
	require.ErrorIs(t, err, domain.ErrForbidden)
}
