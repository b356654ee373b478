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
	"golang.org/x/text/language"

	_ "github.com/jhoicas/depot-stock-api/docs"
	appconversion "github.com/jhoicas/depot-stock-api/internal/application/conversion"
	infracache "github.com/jhoicas/depot-stock-api/internal/infrastructure/cache"
	"github.com/jhoicas/depot-stock-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/depot-stock-api/internal/infrastructure/pdf"
	"github.com/jhoicas/depot-stock-api/internal/infrastructure/postgres"
	"github.com/jhoicas/depot-stock-api/internal/infrastructure/seed"
	httpRouter "github.com/jhoicas/depot-stock-api/internal/interfaces/http"
	"github.com/jhoicas/depot-stock-api/pkg/config"
	"github.com/jhoicas/depot-stock-api/pkg/logger"
)

// @title        Depot Stock API
// @version      1.0
// @description  Conversión de stock entre variantes de un mismo depósito.
// @BasePath     /
// @securityDefinitions.apikey  Bearer
// @in           header
// @name         Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	deps := appconversion.Deps{
		Voucher: infrapdf.NewMarotoPDFGenerator(language.Spanish),
		Log:     log,
	}

	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		if cfg.Storage.SeedFile != "" {
			if err := loadSeed(store, cfg.Storage.SeedFile, seed.Charset(cfg.Storage.SeedCharset)); err != nil {
				log.Fatal().Err(err).Str("file", cfg.Storage.SeedFile).Msg("cargar inventario inicial")
			}
		}
		deps.TxRunner, deps.Ledger, deps.Catalog, deps.History, deps.Depots = store, store, store, store, store
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()

		ledgerRepo := postgres.NewStockLedgerRepository(pool)
		deps.TxRunner = postgres.NewTxRunner(pool)
		deps.Ledger = ledgerRepo
		deps.Catalog = ledgerRepo
		deps.History = postgres.NewConversionHistoryRepository(pool)
		deps.Depots = postgres.NewDepotRepository(pool)
	}

	// Caché de sugerencias: opcional, sin REDIS_ADDR se consulta siempre el historial.
	deps.Cache = infracache.NopSuggestionCache{}
	if cfg.Redis.Addr != "" {
		rdb, err := infracache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, sugerencias sin caché")
		} else {
			defer rdb.Close()
			deps.Cache = infracache.NewRedisSuggestionCache(rdb, cfg.Redis.SuggestionTTL)
		}
	}

	conversionUC := appconversion.NewConversionUseCase(deps, appconversion.Config{
		SuggestionLimit: cfg.Conversion.SuggestionLimit,
		HistoryMaxLimit: cfg.Conversion.HistoryMaxLimit,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Depot Stock API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ConversionUC:    conversionUC,
		HistoryMaxLimit: cfg.Conversion.HistoryMaxLimit,
		JWTSecret:       cfg.JWT.Secret,
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

func loadSeed(store *memory.Store, path string, charset seed.Charset) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	stock, err := seed.ReadStockCSV(f, charset)
	if err != nil {
		return err
	}
	stock.LoadInto(store)
	return nil
}
