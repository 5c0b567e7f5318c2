package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/panafact/facturacion-api/internal/application/emission"
	"github.com/panafact/facturacion-api/internal/application/invoicing"
	"github.com/panafact/facturacion-api/internal/application/issuer"
	"github.com/panafact/facturacion-api/internal/infrastructure/pac/dgisoap"
	"github.com/panafact/facturacion-api/internal/infrastructure/pac/hkarest"
	infrapdf "github.com/panafact/facturacion-api/internal/infrastructure/pdf"
	"github.com/panafact/facturacion-api/internal/infrastructure/postgres"
	httpRouter "github.com/panafact/facturacion-api/internal/interfaces/http"
	"github.com/panafact/facturacion-api/pkg/config"
	"github.com/panafact/facturacion-api/pkg/logger"
	"github.com/panafact/facturacion-api/pkg/pac"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	profileRepo := postgres.NewIssuerProfileRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	fiscalRepo := postgres.NewFiscalDocumentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	locker := postgres.NewAdvisoryLocker(pool)

	// Adaptadores PAC: cada proveedor registra su factory; el Resolve del
	// registry escoge por perfil de emisor y falla cerrado.
	registry := pac.NewRegistry()
	registry.Register(dgisoap.ProviderName, dgisoap.Factory(cfg.PAC))
	registry.Register(hkarest.ProviderName, hkarest.Factory(cfg.PAC))

	reversal := emission.NewReversalLinker(invoiceRepo, fiscalRepo)
	emissionSvc := emission.NewService(
		profileRepo, invoiceRepo, customerRepo, fiscalRepo,
		txRunner, locker, registry, reversal,
		time.Duration(cfg.PAC.HTTPTimeoutSeconds)*time.Second,
		log,
	)
	invoicingSvc := invoicing.NewService(
		invoiceRepo, customerRepo, profileRepo, fiscalRepo,
		txRunner, infrapdf.NewCAFERenderer(), log,
	)
	issuerSvc := issuer.NewService(profileRepo, registry, log)

	// WriteTimeout debe superar el timeout de la llamada al PAC: el emit
	// sostiene la respuesta HTTP mientras espera al proveedor.
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Duration(cfg.PAC.HTTPTimeoutSeconds+15) * time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "PanaFact API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Invoicing: invoicingSvc,
		Emission:  emissionSvc,
		Issuer:    issuerSvc,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
