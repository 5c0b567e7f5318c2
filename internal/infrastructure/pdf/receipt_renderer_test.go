package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panafact/facturacion-api/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleData(kind string) (*entity.Invoice, *entity.IssuerProfile, *entity.Customer, []*entity.InvoiceDetail, *entity.FiscalDocument) {
	authorizedAt := time.Date(2025, 6, 10, 15, 4, 5, 0, time.UTC)
	inv := &entity.Invoice{
		ID:         "inv-1",
		CompanyID:  "co-1",
		CustomerID: "cu-1",
		Kind:       kind,
		Number:     "0000000042",
		Date:       time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		NetTotal:   dec("20.00"),
		TaxTotal:   dec("1.40"),
		GrandTotal: dec("21.40"),
	}
	profile := &entity.IssuerProfile{
		CompanyID:  "co-1",
		RUC:        "155658547",
		DV:         "01",
		LegalName:  "Comercial Istmo S.A.",
		Address:    "Vía España, Ciudad de Panamá",
		BranchCode: "0000",
		POSCode:    "001",
	}
	customer := &entity.Customer{
		ID: "cu-1", CompanyID: "co-1", Name: "José Pérez", TaxID: "8-123-456",
		Email: "jose@example.com",
	}
	details := []*entity.InvoiceDetail{
		{
			InvoiceID:   "inv-1",
			Description: "Servicio de instalación",
			Quantity:    dec("2"),
			UnitPrice:   dec("10.00"),
			TaxRate:     dec("0.07"),
			Taxable:     dec("20.00"),
			Tax:         dec("1.40"),
		},
	}
	fd := &entity.FiscalDocument{
		ID:              "fd-1",
		CompanyID:       "co-1",
		InvoiceID:       "inv-1",
		Kind:            kind,
		State:           entity.FiscalStateAuthorized,
		FiscalCode:      "FE0120155658547000000010000000042a1b2c3d4e5f60718",
		VerificationURL: "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorCUFE?CUFE=FE0120155658547000000010000000042a1b2c3d4e5f60718",
		AuthorizedAt:    &authorizedAt,
	}
	return inv, profile, customer, details, fd
}

func TestRenderGeneratesPDF(t *testing.T) {
	inv, profile, customer, details, fd := sampleData(entity.DocKindInvoice)

	out, err := NewCAFERenderer().Render(context.Background(), inv, profile, customer, details, fd)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderCreditNote(t *testing.T) {
	inv, profile, customer, details, fd := sampleData(entity.DocKindCreditNote)
	inv.RefInvoiceID = "inv-0"

	out, err := NewCAFERenderer().Render(context.Background(), inv, profile, customer, details, fd)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderWithoutVerificationURL(t *testing.T) {
	inv, profile, customer, details, fd := sampleData(entity.DocKindInvoice)
	fd.VerificationURL = ""

	out, err := NewCAFERenderer().Render(context.Background(), inv, profile, customer, details, fd)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestSplitEvery(t *testing.T) {
	assert.Equal(t, []string{"abc"}, splitEvery("abc", 5))
	assert.Equal(t, []string{"abcde", "fgh"}, splitEvery("abcdefgh", 5))
	assert.Equal(t, []string{""}, splitEvery("", 3))
}
