package dgisoap

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/beevik/etree"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/panafact/facturacion-api/pkg/pac"
)

// ID del elemento raíz al que apunta la Reference de la firma.
const rfeElementID = "rfe-doc"

// buildRFE genera el documento rFE de la DGI a partir del payload normalizado.
// Devuelve el árbol sin firmar y el CUFE calculado (dId).
func buildRFE(doc *pac.NormalizedDocument) (*etree.Document, string, error) {
	if doc == nil {
		return nil, "", fmt.Errorf("dgisoap: documento vacío")
	}
	if len(doc.Items) == 0 {
		return nil, "", fmt.Errorf("dgisoap: documento sin líneas")
	}
	cufe := buildCUFE(doc)

	root := etree.NewDocument()
	root.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	rfe := root.CreateElement("rFE")
	rfe.CreateAttr("xmlns", "http://dgi-fep.mef.gob.pa")
	rfe.CreateAttr("Id", rfeElementID)

	rfe.CreateElement("dVerForm").SetText("1.00")
	rfe.CreateElement("dId").SetText(cufe)

	// Datos generales del documento.
	gDGen := rfe.CreateElement("gDGen")
	gDGen.CreateElement("iAmb").SetText(ambCode(doc.Environment))
	gDGen.CreateElement("iTpEmis").SetText("01") // emisión normal en línea
	gDGen.CreateElement("iDoc").SetText(docCode(doc.Kind))
	gDGen.CreateElement("dNroDF").SetText(doc.Number)
	gDGen.CreateElement("dPtoFacDF").SetText(doc.POSCode)
	gDGen.CreateElement("dSucEm").SetText(doc.BranchCode)
	gDGen.CreateElement("dFechaEm").SetText(doc.IssueDate.Format("2006-01-02T15:04:05-07:00"))
	gDGen.CreateElement("iNatOp").SetText("01") // venta
	gDGen.CreateElement("iTipoTranVenta").SetText("1")

	// Emisor.
	gEmis := gDGen.CreateElement("gEmis")
	gRucEmi := gEmis.CreateElement("gRucEmi")
	gRucEmi.CreateElement("dTipoRuc").SetText("2") // persona jurídica
	gRucEmi.CreateElement("dRuc").SetText(doc.Issuer.TaxID)
	gRucEmi.CreateElement("dDV").SetText(doc.Issuer.DV)
	gEmis.CreateElement("dNombEm").SetText(foldASCII(doc.Issuer.Name))
	if doc.Issuer.Address != "" {
		gEmis.CreateElement("dDirecEm").SetText(foldASCII(doc.Issuer.Address))
	}

	// Receptor.
	gDatRec := gDGen.CreateElement("gDatRec")
	gDatRec.CreateElement("iTipoRec").SetText("01") // contribuyente
	gRucRec := gDatRec.CreateElement("gRucRec")
	gRucRec.CreateElement("dRuc").SetText(doc.Buyer.TaxID)
	if doc.Buyer.DV != "" {
		gRucRec.CreateElement("dDV").SetText(doc.Buyer.DV)
	}
	gDatRec.CreateElement("dNombRec").SetText(foldASCII(doc.Buyer.Name))
	if doc.Buyer.Address != "" {
		gDatRec.CreateElement("dDirecRec").SetText(foldASCII(doc.Buyer.Address))
	}
	if doc.Buyer.Email != "" {
		gDatRec.CreateElement("dCorElectRec").SetText(doc.Buyer.Email)
	}

	// Referencia al documento original (obligatoria en notas).
	if doc.Reference != nil {
		gDFRef := gDGen.CreateElement("gDFRef")
		gDFRef.CreateElement("dCufeRef").SetText(doc.Reference.FiscalCode)
		gDFRef.CreateElement("dFechaDFRef").SetText(doc.Reference.IssueDate.Format("2006-01-02"))
	}

	// Líneas.
	for i, item := range doc.Items {
		gItem := rfe.CreateElement("gItem")
		gItem.CreateElement("dSecItem").SetText(strconv.Itoa(i + 1))
		gItem.CreateElement("dDescProd").SetText(foldASCII(item.Description))
		gItem.CreateElement("dCantCodInt").SetText(item.Quantity.String())
		gItem.CreateElement("dPrUnit").SetText(item.UnitPrice.StringFixed(2))
		if !item.Discount.IsZero() {
			gItem.CreateElement("dPrItemDesc").SetText(item.Discount.StringFixed(2))
		}
		gItem.CreateElement("dValTotItem").SetText(item.Taxable.Add(item.Tax).StringFixed(2))
		gITBMS := gItem.CreateElement("gITBMSItem")
		gITBMS.CreateElement("dTasaITBMS").SetText(itbmsRateCode(item.TaxRate.String()))
		gITBMS.CreateElement("dValITBMS").SetText(item.Tax.StringFixed(2))
	}

	// Totales.
	gTot := rfe.CreateElement("gTot")
	gTot.CreateElement("dTotNeto").SetText(doc.Totals.Taxable.StringFixed(2))
	gTot.CreateElement("dTotITBMS").SetText(doc.Totals.Tax.StringFixed(2))
	gTot.CreateElement("dVTot").SetText(doc.Totals.Total.StringFixed(2))
	gTot.CreateElement("dNroItems").SetText(strconv.Itoa(len(doc.Items)))
	for _, rt := range doc.Totals.ByRate {
		gTasa := gTot.CreateElement("gTotITBMSTasa")
		gTasa.CreateElement("dTasa").SetText(itbmsRateCode(rt.Rate.String()))
		gTasa.CreateElement("dTotTasa").SetText(rt.Tax.StringFixed(2))
	}

	return root, cufe, nil
}

// itbmsRateCode mapea la tasa a los códigos de tabla de la DGI.
// 0 → "00", 0.07 → "01", 0.10 → "02", 0.15 → "03". Tasas fuera de tabla se
// emiten tal cual (la DGI las rechazará con mensaje claro).
func itbmsRateCode(rate string) string {
	switch rate {
	case "0":
		return "00"
	case "0.07":
		return "01"
	case "0.1":
		return "02"
	case "0.15":
		return "03"
	}
	return rate
}

var asciiFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldASCII elimina diacríticos: el validador de la DGI opera sobre el
// repertorio básico y rechaza caracteres combinantes en campos de texto.
func foldASCII(s string) string {
	out, _, err := transform.String(asciiFolder, s)
	if err != nil {
		return s
	}
	return out
}
