package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/panafact/facturacion-api/internal/application/dto"
	"github.com/panafact/facturacion-api/internal/application/issuer"
)

// IssuerHandler maneja el perfil de emisor del tenant (solo admin).
type IssuerHandler struct {
	svc *issuer.Service
}

// NewIssuerHandler construye el handler.
func NewIssuerHandler(svc *issuer.Service) *IssuerHandler {
	return &IssuerHandler{svc: svc}
}

// Save crea o reemplaza el perfil de emisor. Las credenciales entran como
// blob opaco y jamás se devuelven en ninguna respuesta.
// PUT /api/issuer-profile
func (h *IssuerHandler) Save(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.SaveIssuerProfileRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	profile, err := h.svc.SaveProfile(c.Context(), companyID, issuer.SaveProfileInput{
		RUC:         in.RUC,
		DV:          in.DV,
		LegalName:   in.LegalName,
		Address:     in.Address,
		BranchCode:  in.BranchCode,
		POSCode:     in.POSCode,
		Provider:    in.Provider,
		Environment: in.Environment,
		Credentials: in.Credentials,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewIssuerProfileResponse(profile))
}

// Get devuelve el perfil activo del tenant, sin credenciales.
// GET /api/issuer-profile
func (h *IssuerHandler) Get(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	profile, err := h.svc.GetProfile(c.Context(), companyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewIssuerProfileResponse(profile))
}
