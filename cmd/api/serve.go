package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	_ "github.com/jhoicas/medstock/docs" // registro swag
	"github.com/jhoicas/medstock/internal/application/auth"
	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/domain/repository"
	"github.com/jhoicas/medstock/internal/infrastructure/memory"
	"github.com/jhoicas/medstock/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/medstock/internal/infrastructure/pdf"
	"github.com/jhoicas/medstock/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/medstock/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/medstock/internal/interfaces/http"
	"github.com/jhoicas/medstock/pkg/config"
	"github.com/jhoicas/medstock/pkg/logger"
)

var (
	migrateOnStart bool
	swaggerFile    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Inicia la API HTTP y el monitor de alertas",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		return serve(cfg, log)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "aplicar migraciones antes de arrancar (postgres)")
	serveCmd.Flags().StringVar(&swaggerFile, "swagger", "./docs/swagger.json", "ruta del swagger.json servido en /docs")
}

// dataStore las tres caras del almacén que consume la aplicación.
type dataStore struct {
	txRunner ledger.TxRunner
	stock    repository.StockViewRepository
	reports  repository.ReportRepository
	close    func()
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*dataStore, error) {
	if cfg.App.StoreDriver == config.StoreDriverMemory {
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &dataStore{txRunner: s, stock: s, reports: s, close: func() {}}, nil
	}

	if migrateOnStart {
		m, err := postgres.NewMigrator(cfg.DB.ConnectionString())
		if err != nil {
			return nil, err
		}
		err = m.Up()
		_ = m.Close()
		if err != nil {
			return nil, err
		}
		log.Info().Msg("migraciones aplicadas")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	return &dataStore{
		txRunner: postgres.NewTxRunner(pool),
		stock:    postgres.NewStockViewRepository(pool),
		reports:  postgres.NewReportRepository(pool),
		close:    pool.Close,
	}, nil
}

func serve(cfg *config.Config, log *logger.Logger) error {
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	m := metrics.New("medstock")
	ledgerUC := ledger.NewLedgerUseCase(store.txRunner, log, ledger.WithRecorder(m))
	reportUC := reporting.NewReportUseCase(store.stock, store.reports, nil)
	alertReportUC := reporting.NewAlertReportUseCase(reportUC, infrapdf.NewMarotoAlertReport(cfg.App.Name))
	authUC := auth.NewAuthUseCase(
		auth.Operator{Username: cfg.Auth.Username, PasswordHash: cfg.Auth.PasswordHash},
		auth.JWTConfig{Secret: cfg.JWT.Secret, ExpMinutes: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer},
	)
	if cfg.Auth.PasswordHash == "" {
		log.Warn().Msg("AUTH_PASSWORD_HASH vacío: el login está deshabilitado")
	}

	deps := httpRouter.RouterDeps{
		AppName:     cfg.App.Name,
		LedgerUC:    ledgerUC,
		ReportUC:    reportUC,
		AlertReport: alertReportUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
		Metrics:     m,
		SwaggerFile: swaggerFile,
		Log:         log,
	}

	// Idempotency-Key solo con Redis configurado.
	if cfg.Redis.Addr != "" {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Idempotency = infraredis.NewIdempotencyStore(client, time.Duration(cfg.Redis.IdempotencyTTL)*time.Hour)
	}

	if cfg.Alerts.Cron != "" {
		monitor := reporting.NewAlertMonitor(reportUC, cfg.Alerts.Cron, cfg.Alerts.HorizonDays, log, m)
		if err := monitor.Start(); err != nil {
			return err
		}
		defer monitor.Stop()
	}

	app := httpRouter.NewApp(deps)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	if err := runUntilSignal(app, cfg.HTTP.Addr(), quit, log); err != nil {
		return err
	}
	log.Info().Msg("aplicación detenida")
	return nil
}

// runUntilSignal atiende en addr hasta recibir una señal en quit y luego apaga el servidor.
// Si Listen falla antes (p. ej. puerto ocupado) devuelve ese error.
func runUntilSignal(app *fiber.App, addr string, quit <-chan os.Signal, log *logger.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("servidor HTTP finalizado")
			return fmt.Errorf("servidor HTTP en %s: %w", addr, err)
		}
		return nil
	case <-quit:
	}

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	return nil
}
