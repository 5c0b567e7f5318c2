package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/panafact/facturacion-api/internal/domain/entity"
)

// CreateCustomerRequest body para POST /api/customers.
type CreateCustomerRequest struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	TaxID     string `json:"tax_id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

// NewCustomerResponse mapea la entidad al DTO.
func NewCustomerResponse(c *entity.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		CompanyID: c.CompanyID,
		Name:      c.Name,
		TaxID:     c.TaxID,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
	}
}

// CreateInvoiceRequest body para POST /api/invoices. Kind acepta INVOICE,
// CREDIT_NOTE o DEBIT_NOTE; las notas llevan ref_invoice_id obligatorio.
type CreateInvoiceRequest struct {
	CustomerID   string               `json:"customer_id"`
	Kind         string               `json:"kind"`
	Number       string               `json:"number"`
	Date         string               `json:"date,omitempty"` // YYYY-MM-DD; vacío usa hoy
	RefInvoiceID string               `json:"ref_invoice_id,omitempty"`
	Lines        []InvoiceLineRequest `json:"lines"`
}

// InvoiceLineRequest línea del documento. TaxRate en fracción (0.07 = 7%).
type InvoiceLineRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount,omitempty"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// InvoiceResponse documento comercial con detalle.
type InvoiceResponse struct {
	ID                 string                  `json:"id"`
	CompanyID          string                  `json:"company_id"`
	CustomerID         string                  `json:"customer_id"`
	Kind               string                  `json:"kind"`
	Number             string                  `json:"number"`
	Date               string                  `json:"date"`
	RefInvoiceID       string                  `json:"ref_invoice_id,omitempty"`
	NetTotal           decimal.Decimal         `json:"net_total"`
	TaxTotal           decimal.Decimal         `json:"tax_total"`
	GrandTotal         decimal.Decimal         `json:"grand_total"`
	FiscalStatus       string                  `json:"fiscal_status"`
	FiscalCode         string                  `json:"fiscal_code,omitempty"`
	FiscalAuthorizedAt *time.Time              `json:"fiscal_authorized_at,omitempty"`
	Details            []InvoiceDetailResponse `json:"details,omitempty"`
}

// InvoiceDetailResponse línea de detalle en la respuesta.
type InvoiceDetailResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Taxable     decimal.Decimal `json:"taxable"`
	Tax         decimal.Decimal `json:"tax"`
}

// NewInvoiceResponse mapea la entidad y su detalle al DTO.
func NewInvoiceResponse(inv *entity.Invoice, details []*entity.InvoiceDetail) InvoiceResponse {
	out := InvoiceResponse{
		ID:                 inv.ID,
		CompanyID:          inv.CompanyID,
		CustomerID:         inv.CustomerID,
		Kind:               inv.Kind,
		Number:             inv.Number,
		Date:               inv.Date.Format("2006-01-02"),
		RefInvoiceID:       inv.RefInvoiceID,
		NetTotal:           inv.NetTotal,
		TaxTotal:           inv.TaxTotal,
		GrandTotal:         inv.GrandTotal,
		FiscalStatus:       inv.FiscalStatus,
		FiscalCode:         inv.FiscalCode,
		FiscalAuthorizedAt: inv.FiscalAuthorizedAt,
	}
	for _, d := range details {
		out.Details = append(out.Details, InvoiceDetailResponse{
			ID:          d.ID,
			Description: d.Description,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			Discount:    d.Discount,
			TaxRate:     d.TaxRate,
			Taxable:     d.Taxable,
			Tax:         d.Tax,
		})
	}
	return out
}

// VoidRequest body para POST /api/invoices/:id/void.
type VoidRequest struct {
	Reason string `json:"reason"`
}

// FiscalDocumentResponse intento de emisión. El XML firmado no se incluye:
// es un blob grande de auditoría, el CAFE es la vista para humanos.
type FiscalDocumentResponse struct {
	ID              string     `json:"id"`
	InvoiceID       string     `json:"invoice_id"`
	Kind            string     `json:"kind"`
	State           string     `json:"state"`
	Provider        string     `json:"provider"`
	Environment     string     `json:"environment"`
	FiscalCode      string     `json:"fiscal_code,omitempty"`
	VerificationURL string     `json:"verification_url,omitempty"`
	TransactionRef  string     `json:"transaction_ref,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	IssuedAt        time.Time  `json:"issued_at"`
	AuthorizedAt    *time.Time `json:"authorized_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewFiscalDocumentResponse mapea la entidad al DTO.
func NewFiscalDocumentResponse(fd *entity.FiscalDocument) FiscalDocumentResponse {
	return FiscalDocumentResponse{
		ID:              fd.ID,
		InvoiceID:       fd.InvoiceID,
		Kind:            fd.Kind,
		State:           fd.State,
		Provider:        fd.Provider,
		Environment:     fd.Environment,
		FiscalCode:      fd.FiscalCode,
		VerificationURL: fd.VerificationURL,
		TransactionRef:  fd.TransactionRef,
		RejectionReason: fd.RejectionReason,
		IssuedAt:        fd.IssuedAt,
		AuthorizedAt:    fd.AuthorizedAt,
		CreatedAt:       fd.CreatedAt,
	}
}

// SaveIssuerProfileRequest body para PUT /api/issuer-profile.
type SaveIssuerProfileRequest struct {
	RUC         string          `json:"ruc"`
	DV          string          `json:"dv"`
	LegalName   string          `json:"legal_name"`
	Address     string          `json:"address,omitempty"`
	BranchCode  string          `json:"branch_code"`
	POSCode     string          `json:"pos_code"`
	Provider    string          `json:"provider"`
	Environment string          `json:"environment"` // TEST | PROD
	Credentials json.RawMessage `json:"credentials"`
}

// IssuerProfileResponse perfil de emisor. Las credenciales nunca se
// devuelven; solo se indica si están configuradas.
type IssuerProfileResponse struct {
	ID             string `json:"id"`
	CompanyID      string `json:"company_id"`
	RUC            string `json:"ruc"`
	DV             string `json:"dv"`
	LegalName      string `json:"legal_name"`
	Address        string `json:"address,omitempty"`
	BranchCode     string `json:"branch_code"`
	POSCode        string `json:"pos_code"`
	Provider       string `json:"provider"`
	Environment    string `json:"environment"`
	HasCredentials bool   `json:"has_credentials"`
	Active         bool   `json:"active"`
}

// NewIssuerProfileResponse mapea la entidad al DTO sin exponer credenciales.
func NewIssuerProfileResponse(p *entity.IssuerProfile) IssuerProfileResponse {
	return IssuerProfileResponse{
		ID:             p.ID,
		CompanyID:      p.CompanyID,
		RUC:            p.RUC,
		DV:             p.DV,
		LegalName:      p.LegalName,
		Address:        p.Address,
		BranchCode:     p.BranchCode,
		POSCode:        p.POSCode,
		Provider:       p.Provider,
		Environment:    p.Environment,
		HasCredentials: len(p.Credentials) > 0,
		Active:         p.Active,
	}
}
