package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/panafact/facturacion-api/internal/application/emission"
	"github.com/panafact/facturacion-api/internal/application/invoicing"
	"github.com/panafact/facturacion-api/internal/application/issuer"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Invoicing *invoicing.Service
	Emission  *emission.Service
	Issuer    *issuer.Service
	JWTSecret string
}

// Router registra las rutas de la API. Todo va detrás del Bearer Token; el
// perfil de emisor además exige rol admin (ahí viven las credenciales PAC).
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Clientes
	customers := api.Group("/customers")
	customerHandler := NewCustomerHandler(deps.Invoicing)
	customers.Post("/", customerHandler.Create)
	customers.Get("/", customerHandler.List)

	// Documentos comerciales
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoicing)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/receipt", invoiceHandler.Receipt)

	// Emisión fiscal
	emissionHandler := NewEmissionHandler(deps.Emission)
	invoices.Post("/:id/emit", emissionHandler.Emit)
	invoices.Post("/:id/void", emissionHandler.Void)
	invoices.Get("/:id/fiscal", emissionHandler.History)
	api.Post("/fiscal-documents/:id/reconcile", emissionHandler.Reconcile)

	// Perfil de emisor (solo admin)
	issuerHandler := NewIssuerHandler(deps.Issuer)
	profile := api.Group("/issuer-profile", RequireRole(RoleAdmin))
	profile.Put("/", issuerHandler.Save)
	profile.Get("/", issuerHandler.Get)
}
