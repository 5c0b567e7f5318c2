package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/panafact/facturacion-api/internal/application/dto"
	"github.com/panafact/facturacion-api/internal/application/invoicing"
	"github.com/panafact/facturacion-api/internal/domain"
)

// InvoiceHandler maneja las peticiones HTTP de documentos comerciales.
type InvoiceHandler struct {
	svc *invoicing.Service
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc *invoicing.Service) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// Create crea una factura o nota en estado PENDING.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	input := invoicing.CreateInvoiceInput{
		CustomerID:   in.CustomerID,
		Kind:         in.Kind,
		Number:       in.Number,
		RefInvoiceID: in.RefInvoiceID,
	}
	if in.Date != "" {
		date, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return respondError(c, fmt.Errorf("%w: fecha inválida, formato YYYY-MM-DD", domain.ErrInvalidInput))
		}
		input.Date = date
	}
	for _, l := range in.Lines {
		input.Lines = append(input.Lines, invoicing.LineInput{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Discount:    l.Discount,
			TaxRate:     l.TaxRate,
		})
	}

	inv, err := h.svc.CreateInvoice(c.Context(), companyID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewInvoiceResponse(inv, nil))
}

// GetByID obtiene el documento con su detalle.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	inv, details, err := h.svc.GetInvoice(c.Context(), companyID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewInvoiceResponse(inv, details))
}

// Receipt genera el CAFE (PDF) del documento autorizado.
// GET /api/invoices/:id/receipt
func (h *InvoiceHandler) Receipt(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	pdf, err := h.svc.Receipt(c.Context(), companyID, id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", "cafe-"+id+".pdf"))
	return c.Send(pdf)
}
