package dgisoap

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panafact/facturacion-api/pkg/pac"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleDocument() *pac.NormalizedDocument {
	return &pac.NormalizedDocument{
		Kind:        "INVOICE",
		Number:      "0000000042",
		IssueDate:   time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC),
		Environment: "TEST",
		BranchCode:  "0000",
		POSCode:     "001",
		Issuer: pac.Party{
			TaxID: "155658547", DV: "01",
			Name: "Comercial Istmo S.A.", Address: "Vía España, Ciudad de Panamá",
		},
		Buyer: pac.Party{
			TaxID: "8-123-456", Name: "José Pérez", Email: "jose@example.com",
		},
		Items: []pac.Item{
			{
				Description: "Instalación eléctrica",
				Quantity:    dec("2"), UnitPrice: dec("10"),
				TaxRate: dec("0.07"), Taxable: dec("20"), Tax: dec("1.40"),
			},
		},
		Totals: pac.Totals{
			Taxable: dec("20"), Tax: dec("1.40"), Total: dec("21.40"),
			ByRate: []pac.RateTotal{{Rate: dec("0.07"), Taxable: dec("20"), Tax: dec("1.40")}},
		},
	}
}

func TestBuildRFEStructure(t *testing.T) {
	doc, cufe, err := buildRFE(sampleDocument())
	require.NoError(t, err)
	require.NotEmpty(t, cufe)

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "rFE", root.Tag)
	assert.Equal(t, rfeElementID, root.SelectAttrValue("Id", ""))

	assert.Equal(t, cufe, root.FindElement("dId").Text())
	assert.Equal(t, "2", root.FindElement("gDGen/iAmb").Text())
	assert.Equal(t, "01", root.FindElement("gDGen/iDoc").Text())
	assert.Equal(t, "0000000042", root.FindElement("gDGen/dNroDF").Text())
	assert.Equal(t, "155658547", root.FindElement("gDGen/gEmis/gRucEmi/dRuc").Text())
	assert.Equal(t, "01", root.FindElement("gDGen/gEmis/gRucEmi/dDV").Text())

	assert.Equal(t, "20.00", root.FindElement("gTot/dTotNeto").Text())
	assert.Equal(t, "1.40", root.FindElement("gTot/dTotITBMS").Text())
	assert.Equal(t, "21.40", root.FindElement("gTot/dVTot").Text())
	assert.Equal(t, "1", root.FindElement("gTot/dNroItems").Text())

	items := root.FindElements("gItem")
	require.Len(t, items, 1)
	assert.Equal(t, "01", items[0].FindElement("gITBMSItem/dTasaITBMS").Text())
	assert.Equal(t, "1.40", items[0].FindElement("gITBMSItem/dValITBMS").Text())

	// Sin referencia: no es una nota.
	assert.Nil(t, root.FindElement("gDGen/gDFRef"))
}

func TestBuildRFECreditNoteReference(t *testing.T) {
	d := sampleDocument()
	d.Kind = "CREDIT_NOTE"
	d.Reference = &pac.Reference{
		FiscalCode: "FE20101556585470000001...",
		IssueDate:  time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	doc, _, err := buildRFE(d)
	require.NoError(t, err)
	root := doc.Root()

	assert.Equal(t, "04", root.FindElement("gDGen/iDoc").Text())
	ref := root.FindElement("gDGen/gDFRef")
	require.NotNil(t, ref)
	assert.Equal(t, d.Reference.FiscalCode, ref.FindElement("dCufeRef").Text())
	assert.Equal(t, "2025-05-01", ref.FindElement("dFechaDFRef").Text())
}

func TestBuildRFEFoldsDiacritics(t *testing.T) {
	d := sampleDocument()
	doc, _, err := buildRFE(d)
	require.NoError(t, err)
	root := doc.Root()

	assert.Equal(t, "Jose Perez", root.FindElement("gDGen/gDatRec/dNombRec").Text())
	assert.Equal(t, "Via Espana, Ciudad de Panama", root.FindElement("gDGen/gEmis/dDirecEm").Text())
	assert.Equal(t, "Instalacion electrica", root.FindElement("gItem/dDescProd").Text())
}

func TestBuildRFERejectsEmptyItems(t *testing.T) {
	d := sampleDocument()
	d.Items = nil
	_, _, err := buildRFE(d)
	require.Error(t, err)
}

func TestBuildCUFEDeterministic(t *testing.T) {
	a := buildCUFE(sampleDocument())
	b := buildCUFE(sampleDocument())
	assert.Equal(t, a, b)

	other := sampleDocument()
	other.Number = "0000000043"
	assert.NotEqual(t, a, buildCUFE(other))

	assert.Contains(t, a, "FE2")
	assert.Contains(t, a, "155658547")
}

func TestItbmsRateCode(t *testing.T) {
	assert.Equal(t, "00", itbmsRateCode("0"))
	assert.Equal(t, "01", itbmsRateCode("0.07"))
	assert.Equal(t, "02", itbmsRateCode("0.1"))
	assert.Equal(t, "03", itbmsRateCode("0.15"))
}
