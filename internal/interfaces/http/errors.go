package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/panafact/facturacion-api/internal/application/dto"
	"github.com/panafact/facturacion-api/internal/domain"
)

// respondError traduce la taxonomía de errores del dominio a HTTP. Los
// errores llegan envueltos: se clasifican con errors.Is/As, nunca por mensaje.
func respondError(c *fiber.Ctx, err error) error {
	var rejected *domain.ProviderRejectedError
	if errors.As(err, &rejected) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code:    "PROVIDER_REJECTED",
			Message: rejected.Error(),
		})
	}
	var pending *domain.PendingReconciliationError
	if errors.As(err, &pending) {
		// Desenlace desconocido: el intento queda en SIGNING y el cliente
		// debe conciliar, no reintentar a ciegas.
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Code:    "PENDING_RECONCILIATION",
			Message: pending.Error(),
		})
	}

	switch {
	case errors.Is(err, domain.ErrAlreadyIssued):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_ISSUED", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrConfiguration):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFIGURATION", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidLineItems):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "INVALID_LINE_ITEMS", Message: err.Error()})
	case errors.Is(err, domain.ErrMissingFiscalReference):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "MISSING_FISCAL_REFERENCE", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
