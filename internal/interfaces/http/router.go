package http

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/medstock/internal/application/auth"
	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/infrastructure/metrics"
	"github.com/jhoicas/medstock/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName     string
	LedgerUC    *ledger.LedgerUseCase
	ReportUC    *reporting.ReportUseCase
	AlertReport *reporting.AlertReportUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
	Idempotency IdempotencyStore // nil: sin control de Idempotency-Key
	Metrics     *metrics.Metrics // nil: sin /metrics
	SwaggerFile string           // vacío o inexistente: sin /docs
	Log         *logger.Logger
}

// NewApp construye la aplicación Fiber con middleware y rutas.
func NewApp(deps RouterDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      deps.AppName,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: ErrorHandler(deps.Log),
	})
	app.Use(recover.New())
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
		app.Get("/metrics", deps.Metrics.Handler())
	}

	// Swagger UI en local: http://localhost:<port>/docs
	if deps.SwaggerFile != "" {
		if _, err := os.Stat(deps.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: deps.SwaggerFile,
				Path:     "docs",
				Title:    "MedStock API",
			}))
		}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := deps.ReportUC.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": deps.AppName, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	Router(app, deps)
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC, deps.Log)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	itemHandler := NewItemHandler(deps.LedgerUC, deps.ReportUC, deps.Log)
	protected.Post("/items", itemHandler.Register)
	protected.Get("/items", itemHandler.List)
	protected.Get("/items/:id/stock", itemHandler.Stock)
	protected.Get("/items/:id/lots", itemHandler.Lots)

	ledgerHandler := NewLedgerHandler(deps.LedgerUC, deps.Log)
	mutation := []fiber.Handler{}
	if deps.Idempotency != nil {
		mutation = append(mutation, Idempotency(deps.Idempotency, deps.Log))
	}
	protected.Post("/stock/receive", append(mutation, ledgerHandler.Receive)...)
	protected.Post("/stock/dispatch", append(mutation, ledgerHandler.Dispatch)...)

	reportHandler := NewReportHandler(deps.ReportUC, deps.AlertReport, deps.Log)
	protected.Get("/transactions", reportHandler.Transactions)
	protected.Get("/alerts", reportHandler.Alerts)
	protected.Get("/stats", reportHandler.Stats)
	if deps.AlertReport != nil {
		protected.Get("/reports/alerts.pdf", reportHandler.AlertsPDF)
	}
}
