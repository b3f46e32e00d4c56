package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/infra/observability"
	"github.com/mohangy/azii/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthCheck probes one backing dependency for GET /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	search *service.SearchService,
	acct *service.AccountingService,
	checks []HealthCheck,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(checks, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Subscribers and search
		r.Post("/search", statelessSearchHandler(search, logger))
		r.Get("/subscribers", searchSubscribersHandler(search, logger))
		r.Put("/subscribers/{username}", upsertSubscriberHandler(search, logger))

		// Transactions
		r.Get("/transactions", listTransactionsHandler(acct, logger))
		r.Post("/transactions", upsertTransactionHandler(acct, logger))
		r.Post("/transactions/{ref}/resolve", resolveTransactionHandler(acct, logger))

		// Income ledger
		r.Get("/income", listIncomeHandler(acct, logger))
		r.Post("/income/sync", syncIncomeHandler(acct, logger))
		r.Post("/income/sync/store", syncStoredIncomeHandler(acct, logger))
		r.Delete("/income/{ref}", retractIncomeHandler(acct, logger))

		// Expense ledger
		r.Get("/expenses", listExpensesHandler(acct, logger))
		r.Post("/expenses", addExpenseHandler(acct, logger))
		r.Get("/expenses/taxonomy", taxonomyHandler(acct))

		// Reports
		r.Get("/reports/summary", summaryHandler(acct, logger))
		r.Get("/reports/{kind}", reportHandler(acct, logger))
		r.Get("/reports/{kind}/export.xlsx", exportReportHandler(acct, logger))

		// Reference extraction
		r.Post("/extract", extractHandler(logger))

		// Operational counters
		r.Get("/metrics/ops", opsMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Health & metrics
// ============================================================

func healthzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "azii-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			start := time.Now()
			err := c.Check(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("health check failed", zap.String("dependency", c.Name), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: c.Name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
