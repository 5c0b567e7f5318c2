package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/panafact/facturacion-api/internal/application/dto"
	"github.com/panafact/facturacion-api/internal/application/invoicing"
)

// CustomerHandler maneja las peticiones HTTP de clientes.
type CustomerHandler struct {
	svc *invoicing.Service
}

// NewCustomerHandler construye el handler.
func NewCustomerHandler(svc *invoicing.Service) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

// Create registra un cliente del tenant.
// POST /api/customers
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateCustomerRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	customer, err := h.svc.CreateCustomer(c.Context(), companyID, invoicing.CreateCustomerInput{
		Name:    in.Name,
		TaxID:   in.TaxID,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: in.Address,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCustomerResponse(customer))
}

// List devuelve los clientes del tenant.
// GET /api/customers
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	customers, err := h.svc.ListCustomers(c.Context(), companyID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.CustomerResponse, 0, len(customers))
	for _, cu := range customers {
		out = append(out, dto.NewCustomerResponse(cu))
	}
	return c.JSON(out)
}
