package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poa-mx/poa-insights-go/internal/config"
	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/handler"
	"github.com/poa-mx/poa-insights-go/internal/infra/cache"
	"github.com/poa-mx/poa-insights-go/internal/infra/memory"
	"github.com/poa-mx/poa-insights-go/internal/infra/observability"
	"github.com/poa-mx/poa-insights-go/internal/infra/postgres"
	"github.com/poa-mx/poa-insights-go/internal/infra/postgrest"
	"github.com/poa-mx/poa-insights-go/internal/infra/resilience"
	"github.com/poa-mx/poa-insights-go/internal/port"
	"github.com/poa-mx/poa-insights-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "poa-insights")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	dashboardCache := cache.New[*domain.DashboardStats](cfg.CacheTTL)

	// --- Stores ---
	var (
		ledger      port.InvoiceLedger
		companies   port.CompanyStore
		insights    port.InsightStore
		users       port.AuthStore
		seeder      port.DemoSeeder
		healthStore handler.Pinger
	)

	switch cfg.StoreBackend {
	case "postgres":
		logger.Info("using Postgres as data backend")
		pg, err := postgres.Connect(context.Background(), cfg.DatabaseURL, metrics)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close()
		ledger, companies, insights, users = pg, pg, pg, pg
		healthStore = pg

	case "postgrest":
		logger.Info("using PostgREST as data backend",
			zap.String("postgrest_url", cfg.PostgRESTURL),
		)
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		cb := resilience.NewCircuitBreaker("postgrest")
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		pr := postgrest.NewClient(httpClient, cfg.PostgRESTURL, cfg.PostgRESTAnonKey, cfg.PostgRESTServiceKey, cb, resilienceCfg, metrics, logger)
		ledger, companies, insights, users = pr, pr, pr, pr
		healthStore = pr

	default:
		logger.Info("using in-memory store with demo data support")
		mem := memory.NewStore()
		ledger, companies, insights, users = mem, mem, mem, mem
		seeder = mem
		healthStore = mem

		if cfg.SeedOnStart {
			stats, err := mem.Seed(context.Background(), cfg.SeedScenario)
			if err != nil {
				logger.Fatal("failed to seed demo data", zap.Error(err))
			}
			logger.Info("demo data seeded",
				zap.String("scenario", cfg.SeedScenario),
				zap.Int("companies", stats.Companies),
				zap.Int("invoices", stats.Invoices),
				zap.Int("alerts", stats.Alerts),
			)
		}
	}

	// --- Services ---
	insightsSvc := service.NewInsightsService(
		ledger,
		companies,
		insights,
		domain.DefaultPolicy(),
		dashboardCache,
		metrics,
		logger,
	)
	authSvc := service.NewAuthService(users, cfg.JWTSecret, cfg.JWTAccessTTL, logger)

	// --- Router ---
	router := handler.NewRouter(insightsSvc, authSvc, seeder, healthStore, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
