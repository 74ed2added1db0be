package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/observability"
	"github.com/boddenberg/bank-backend-go/internal/port"
	"github.com/boddenberg/bank-backend-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps are the collaborators the router wires into its handlers.
type Deps struct {
	Accounts  *service.AccountService
	Loans     *service.LoanService
	Auth      *service.AuthService
	Directory *service.DirectoryService
	Store     port.Store
	Metrics   *observability.Metrics
	Logger    *zap.Logger

	// CORSAllowedOrigins defaults to every origin when empty.
	CORSAllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	origins := d.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, d.Metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(d.Store, logger))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {

		// =============================================
		// Authentication
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(d.Auth, logger))
			r.Post("/login", authLoginHandler(d.Auth, logger))
			r.Post("/refresh", authRefreshHandler(d.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(d.Auth, logger))
				r.Post("/logout", authLogoutHandler(d.Auth, logger))
			})
		})

		// =============================================
		// Customer
		// =============================================
		r.Route("/user", func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, logger))
			r.Use(RequireRole(logger, domain.RoleUser))

			r.Get("/accounts", listMyAccountsHandler(d.Accounts, logger))
			r.Post("/accounts", createAccountHandler(d.Accounts, logger))
			r.Post("/accounts/deposit", depositHandler(d.Accounts, logger))
			r.Post("/accounts/withdraw", withdrawHandler(d.Accounts, logger))
			r.Get("/accounts/{id}/transactions", listMyTransactionsHandler(d.Accounts, logger))
			r.Post("/loans/apply", applyLoanHandler(d.Loans, logger))
		})

		// =============================================
		// Employee
		// =============================================
		r.Route("/employee", func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, logger))
			r.Use(RequireRole(logger, domain.RoleEmployee, domain.RoleAdmin))

			r.Get("/accounts/{id}", getAccountHandler(d.Accounts, logger))
			r.Put("/accounts/{id}", updateAccountHandler(d.Accounts, logger))
			r.Put("/accounts/{id}/status/{status}", setAccountStatusHandler(d.Accounts, logger))
			r.Get("/accounts/{id}/transactions", listTransactionsHandler(d.Accounts, logger))
			r.Get("/loans", listLoansHandler(d.Loans, logger))
			r.Put("/loans/{id}/status", setLoanStatusHandler(d.Loans, logger))
			r.Get("/employees/{id}", getEmployeeHandler(d.Directory, logger))
		})

		// =============================================
		// Admin
		// =============================================
		r.Route("/admin", func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, logger))
			r.Use(RequireRole(logger, domain.RoleAdmin))

			r.Get("/dashboard", dashboardHandler(d.Directory, logger))
			r.Get("/metrics", metricsSnapshotHandler(d.Metrics))

			r.Get("/branches", listBranchesHandler(d.Directory, logger))
			r.Post("/branches", createBranchHandler(d.Directory, logger))
			r.Delete("/branches/{id}", deleteBranchHandler(d.Directory, logger))

			r.Get("/employees", listEmployeesHandler(d.Directory, logger))
			r.Post("/employees", createEmployeeHandler(d.Directory, logger))
			r.Put("/employees/{id}", updateEmployeeHandler(d.Directory, logger))
			r.Delete("/employees/{id}", deleteEmployeeHandler(d.Directory, logger))

			r.Get("/customers", listCustomersHandler(d.Directory, logger))
			r.Delete("/customers/{id}", deleteCustomerHandler(d.Directory, logger))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readyzHandler reports ready only when the store answers a ping.
func readyzHandler(store port.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSnapshotHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
