package dgisoap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/panafact/facturacion-api/pkg/pac"
)

// Códigos de tipo de documento (iDoc) del formato rFE de la DGI.
const (
	docCodeInvoice    = "01"
	docCodeCreditNote = "04"
	docCodeDebitNote  = "05"
)

// Códigos de ambiente (iAmb): 1 = producción, 2 = pruebas.
const (
	ambProd = "1"
	ambTest = "2"
)

func docCode(kind string) string {
	switch kind {
	case "CREDIT_NOTE":
		return docCodeCreditNote
	case "DEBIT_NOTE":
		return docCodeDebitNote
	default:
		return docCodeInvoice
	}
}

func ambCode(environment string) string {
	if environment == "PROD" {
		return ambProd
	}
	return ambTest
}

// buildCUFE construye el identificador único del documento (dId). Prefijo
// estructurado según el formato de la DGI (tipo, ambiente, RUC emisor,
// sucursal, punto y número) más un código de seguridad derivado: SHA-256 de
// la cadena completa con fecha y totales, truncado.
func buildCUFE(doc *pac.NormalizedDocument) string {
	ruc := onlyDigits(doc.Issuer.TaxID)
	head := fmt.Sprintf("FE%s%s%s%s%s%s",
		ambCode(doc.Environment),
		docCode(doc.Kind),
		ruc,
		doc.BranchCode,
		doc.POSCode,
		doc.Number,
	)
	seed := head +
		doc.IssueDate.Format("20060102") +
		doc.Totals.Taxable.StringFixed(2) +
		doc.Totals.Tax.StringFixed(2) +
		doc.Totals.Total.StringFixed(2) +
		onlyDigits(doc.Buyer.TaxID)
	sum := sha256.Sum256([]byte(seed))
	return head + hex.EncodeToString(sum[:])[:16]
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
