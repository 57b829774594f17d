package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/observability"
	"github.com/poa-mx/poa-insights-go/internal/port"
	"github.com/poa-mx/poa-insights-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the insights dashboard
// frontend. The seeder is nil on database-backed deployments, which
// disables the demo endpoints.
func NewRouter(svc *service.InsightsService, authSvc *service.AuthService, seeder port.DemoSeeder, store Pinger, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Service metrics snapshot
		// GET /v1/metrics/service
		// =============================================
		r.Get("/metrics/service", serviceMetricsHandler(metrics))

		// =============================================
		// Authentication
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(authSvc, logger))
			r.Post("/login", authLoginHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Get("/me", authMeHandler(authSvc, logger))
			})
		})

		// =============================================
		// Demo data
		// GET  /v1/scenarios
		// POST /v1/demo/seed
		// =============================================
		r.Get("/scenarios", scenariosHandler(seeder))
		r.Post("/demo/seed", seedHandler(svc, seeder, logger))

		// =============================================
		// Companies & analytics
		// =============================================
		r.Get("/companies", listCompaniesHandler(svc, logger))
		r.Get("/companies/{companyId}", getCompanyHandler(svc, logger))
		r.Get("/companies/{companyId}/dashboard", dashboardHandler(svc, logger))
		r.Get("/companies/{companyId}/invoices", listInvoicesHandler(svc, logger))
		r.Get("/companies/{companyId}/health-score", healthScoreHandler(svc, logger))
		r.Post("/companies/{companyId}/health-score/recompute", recomputeScoreHandler(svc, logger))
		r.Get("/companies/{companyId}/semaphore", semaphoreHandler(svc, logger))
		r.Get("/companies/{companyId}/forecast", forecastHandler(svc, logger))
		r.Get("/companies/{companyId}/credit", creditHandler(svc, logger))
		r.Post("/companies/{companyId}/cfo/chat", cfoChatHandler(svc, logger))
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		storeStatus := "healthy"
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				status, storeStatus = "degraded", "unreachable"
			}
		}
		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{
			"status":    status,
			"store":     storeStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func serviceMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetServiceSnapshot())
	}
}

// ============================================================
// Authentication
// ============================================================

func authRegisterHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/register")
		defer span.End()

		var req domain.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Register(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func authLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Login(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func authMeHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/auth/me")
		defer span.End()

		profile, err := authSvc.Me(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// ============================================================
// Demo data
// ============================================================

func scenariosHandler(seeder port.DemoSeeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if seeder == nil {
			writeError(w, http.StatusServiceUnavailable, "demo scenarios unavailable on this backend")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"scenarios": seeder.Scenarios()})
	}
}

func seedHandler(svc *service.InsightsService, seeder port.DemoSeeder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/demo/seed")
		defer span.End()

		if seeder == nil {
			writeError(w, http.StatusServiceUnavailable, "demo seeding unavailable on this backend")
			return
		}

		scenario := r.URL.Query().Get("scenario")
		stats, err := seeder.Seed(ctx, scenario)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		svc.FlushCache()

		logger.Info("demo data seeded",
			zap.String("scenario", scenario),
			zap.Int("companies", stats.Companies),
			zap.Int("invoices", stats.Invoices),
		)
		writeJSON(w, http.StatusOK, stats)
	}
}

// ============================================================
// Companies & analytics
// ============================================================

func listCompaniesHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies")
		defer span.End()

		companies, err := svc.ListCompanies(ctx, r.URL.Query().Get("scenario"), time.Now().UTC())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
	}
}

func getCompanyHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		company, err := svc.GetCompanyDetail(ctx, companyID, time.Now().UTC())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, company)
	}
}

func dashboardHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}/dashboard")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		stats, err := svc.GetDashboard(ctx, companyID, time.Now().UTC())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func listInvoicesHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}/invoices")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		page, pageSize := parsePagination(r)
		kind := domain.InvoiceKind(r.URL.Query().Get("kind"))

		result, err := svc.ListInvoices(ctx, companyID, kind, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func healthScoreHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}/health-score")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		breakdown, err := svc.GetHealthScore(ctx, companyID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, breakdown)
	}
}

func recomputeScoreHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/companies/{companyId}/health-score/recompute")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		breakdown, err := svc.RecomputeScore(ctx, companyID, time.Now().UTC())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, breakdown)
	}
}

func semaphoreHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}/semaphore")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		summary, err := svc.GetSemaphore(ctx, companyID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func forecastHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}/forecast")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		bundle, err := svc.GetForecast(ctx, companyID, time.Now().UTC())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, bundle)
	}
}

func creditHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}/credit")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		bundle, err := svc.GetCredit(ctx, companyID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, bundle)
	}
}

func cfoChatHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/companies/{companyId}/cfo/chat")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		var req domain.CFOChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		reply, err := svc.CFOChat(ctx, companyID, req.Message, time.Now().UTC())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}
