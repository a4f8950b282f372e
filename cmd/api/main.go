package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/varejosoft/retaguarda/internal/application/auth"
	"github.com/varejosoft/retaguarda/internal/application/ledger"
	"github.com/varejosoft/retaguarda/internal/application/reconciliation"
	appsync "github.com/varejosoft/retaguarda/internal/application/sync"
	"github.com/varejosoft/retaguarda/internal/application/terminal"
	"github.com/varejosoft/retaguarda/internal/infrastructure/postgres"
	infraredis "github.com/varejosoft/retaguarda/internal/infrastructure/redis"
	httpRouter "github.com/varejosoft/retaguarda/internal/interfaces/http"
	"github.com/varejosoft/retaguarda/pkg/config"
	"github.com/varejosoft/retaguarda/pkg/logger"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	productRepo := postgres.NewProductRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	reconRepo := postgres.NewReconciliationRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)
	cashRepo := postgres.NewCashMovementRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Cache de snapshots: Redis si está configurado, si no no-op.
	var cache appsync.SnapshotCache = appsync.NoopSnapshotCache{}
	if cfg.Redis.Addr != "" {
		redisCache, err := infraredis.NewSnapshotCache(
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SnapshotTTL, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis no disponible, snapshot sin cache")
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	registry := terminal.NewRegistry(cfg.Terminal.HeartbeatTimeout, log)
	registry.StartSweeper(ctx, cfg.Terminal.SweepInterval)

	ledgerUC := ledger.NewLedgerUseCase(txRunner, movementRepo, productRepo)
	conferenceUC := reconciliation.NewConferenceUseCase(txRunner, ledgerUC, movementRepo, productRepo, reconRepo)
	syncUC := appsync.NewSyncUseCase(txRunner, ledgerUC, saleRepo, cashRepo, productRepo, userRepo, cache, registry, log)
	authUC := auth.NewAuthUseCase(userRepo, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:       authUC,
		LedgerUC:     ledgerUC,
		ConferenceUC: conferenceUC,
		SyncUC:       syncUC,
		Registry:     registry,
		JWTSecret:    cfg.JWT.Secret,
	})

	app.Use("/pdv-ws", httpRouter.WSUpgrade)
	app.Get("/pdv-ws", httpRouter.TerminalWS(registry, log))

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
