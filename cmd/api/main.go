package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/erp-tn-api/internal/application/company"
	"github.com/jhoicas/erp-tn-api/internal/application/documents"
	"github.com/jhoicas/erp-tn-api/internal/application/numbering"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
	inframetrics "github.com/jhoicas/erp-tn-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/erp-tn-api/internal/infrastructure/pdf"
	"github.com/jhoicas/erp-tn-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/erp-tn-api/internal/infrastructure/redis"
	"github.com/jhoicas/erp-tn-api/internal/infrastructure/teif"
	httpRouter "github.com/jhoicas/erp-tn-api/internal/interfaces/http"
	"github.com/jhoicas/erp-tn-api/pkg/config"
	"github.com/jhoicas/erp-tn-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("numbering_backend", cfg.Numbering.Backend).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.RunMigrations(postgres.StdDB(pool)); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := inframetrics.New(registry, cfg.App.Name, cfg.App.Env)

	companyRepo := postgres.NewCompanyRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)
	templateRepo := postgres.NewNumberingTemplateRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Contador atómico: PostgreSQL por defecto, Redis si NUMBERING_BACKEND=redis.
	var counters repository.SequenceRepository = postgres.NewSequenceRepository(pool)
	if cfg.Numbering.Backend == config.NumberingBackendRedis {
		client, err := infraredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		counters = infraredis.NewSequenceStore(client, "")
	}

	numberingSvc := numbering.NewService(counters, counters, templateRepo, metrics, log)
	teifBuilder := teif.NewBuilder()

	documentUC := documents.NewDocumentUseCase(
		txRunner, documentRepo, companyRepo, numberingSvc, teifBuilder, metrics, log,
		documents.Defaults{
			Currency:        cfg.Fiscal.Currency,
			FiscalStamp:     cfg.Fiscal.FiscalStamp,
			FodecRate:       cfg.Fiscal.FodecRate,
			WithholdingRate: cfg.Fiscal.WithholdingRate,
		},
	)
	exportUC := documents.NewExportUseCase(documentRepo, companyRepo, infrapdf.NewMarotoPDFGenerator(), teifBuilder)
	if cfg.TEIF.CertPath != "" {
		signer, err := loadSigner(cfg.TEIF)
		if err != nil {
			log.Fatal().Err(err).Msg("certificado TEIF")
		}
		exportUC.WithSigner(signer)
		log.Info().Str("cert", cfg.TEIF.CertPath).Msg("firma XAdES del TEIF activada")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "ERP TN API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		AppName:   cfg.App.Name,
		Documents: documentUC,
		Export:    exportUC,
		Numbering: numberingSvc,
		Company:   company.NewUseCase(companyRepo, log),
		JWTSecret: cfg.JWT.Secret,
		Gatherer:  registry,
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

func loadSigner(cfg config.TEIFConfig) (*teif.Signer, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch strings.ToLower(filepath.Ext(cfg.CertPath)) {
	case ".p12", ".pfx":
		cert, err = teif.LoadP12(cfg.CertPath, cfg.CertPassword)
	default:
		cert, err = teif.LoadPEM(cfg.CertPath, cfg.KeyPath)
	}
	if err != nil {
		return nil, err
	}
	signer, err := teif.NewSigner(cert)
	if err != nil {
		return nil, err
	}
	signer.PolicyHash = cfg.PolicyHash
	return signer, nil
}
