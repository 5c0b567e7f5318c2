package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores del subsistema de emisión fiscal.
var (
	// ErrConfiguration indica que el tenant no tiene perfil de emisor activo
	// o que el proveedor configurado no existe. No es reintentable sin
	// intervención del administrador.
	ErrConfiguration = errors.New("configuración de emisor inválida o ausente")

	// ErrAlreadyIssued indica que el documento comercial ya tiene un
	// FiscalDocument AUTORIZADO. El caller recibe el resultado existente.
	ErrAlreadyIssued = errors.New("el documento ya fue emitido y autorizado")

	// ErrInvalidLineItems indica líneas inválidas (cantidad, precio,
	// descuento o tasa fuera de rango). Se rechaza antes de cualquier
	// llamada externa.
	ErrInvalidLineItems = errors.New("líneas de detalle inválidas")

	// ErrMissingFiscalReference indica que la nota de crédito/débito apunta
	// a una factura sin FiscalDocument AUTORIZADO.
	ErrMissingFiscalReference = errors.New("la factura original no tiene documento fiscal autorizado")
)

// ProviderRejectedError rechazo definitivo del PAC, con la razón reportada.
// El documento comercial queda habilitado para una re-emisión corregida.
type ProviderRejectedError struct {
	Provider string
	Reason   string
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("el proveedor %s rechazó el documento: %s", e.Provider, e.Reason)
}

// PendingReconciliationError resultado ambiguo (timeout o falla de transporte).
// El FiscalDocument queda en SIGNING; requiere CheckStatus o revisión manual
// antes de cualquier reintento. Nunca se auto-resuelve a un estado terminal.
type PendingReconciliationError struct {
	FiscalDocumentID string
	Cause            error
}

func (e *PendingReconciliationError) Error() string {
	return fmt.Sprintf("emisión %s pendiente de conciliación: %v", e.FiscalDocumentID, e.Cause)
}

func (e *PendingReconciliationError) Unwrap() error { return e.Cause }
