package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/panafact/facturacion-api/internal/application/dto"
	"github.com/panafact/facturacion-api/internal/application/emission"
	"github.com/panafact/facturacion-api/internal/domain"
)

// EmissionHandler maneja las peticiones HTTP de emisión fiscal.
type EmissionHandler struct {
	svc *emission.Service
}

// NewEmissionHandler construye el handler.
func NewEmissionHandler(svc *emission.Service) *EmissionHandler {
	return &EmissionHandler{svc: svc}
}

// Emit emite el documento ante el PAC del tenant. Idempotente: si ya existe
// un documento fiscal autorizado se devuelve ese mismo con 200.
// POST /api/invoices/:id/emit
func (h *EmissionHandler) Emit(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}

	fd, err := h.svc.Emit(c.Context(), companyID, id)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyIssued) {
			return c.JSON(dto.NewFiscalDocumentResponse(fd))
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewFiscalDocumentResponse(fd))
}

// Void anula el documento fiscal autorizado de la factura.
// POST /api/invoices/:id/void
func (h *EmissionHandler) Void(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	var in dto.VoidRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	fd, err := h.svc.Void(c.Context(), companyID, id, in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewFiscalDocumentResponse(fd))
}

// History devuelve los intentos de emisión del documento, el más reciente
// primero.
// GET /api/invoices/:id/fiscal
func (h *EmissionHandler) History(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}

	attempts, err := h.svc.History(c.Context(), companyID, id)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.FiscalDocumentResponse, 0, len(attempts))
	for i := len(attempts) - 1; i >= 0; i-- {
		out = append(out, dto.NewFiscalDocumentResponse(attempts[i]))
	}
	return c.JSON(out)
}

// Reconcile consulta al PAC el desenlace de un intento SIGNING.
// POST /api/fiscal-documents/:id/reconcile
func (h *EmissionHandler) Reconcile(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}

	fd, err := h.svc.Reconcile(c.Context(), companyID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewFiscalDocumentResponse(fd))
}
