package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/grundbok/grundbok/internal/accounting"
	"github.com/grundbok/grundbok/internal/accounts"
	"github.com/grundbok/grundbok/internal/auth"
	"github.com/grundbok/grundbok/internal/observability"
	"github.com/grundbok/grundbok/internal/payroll"
	"github.com/grundbok/grundbok/internal/periods"
	"github.com/grundbok/grundbok/internal/shared"
	"github.com/grundbok/grundbok/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	AuthHandler        *auth.Handler
	AccountsHandler    *accounts.Handler
	PayrollHandler     *payroll.Handler
	TransactionHandler *accounting.Handler
	PeriodsHandler     *periods.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.AccountsHandler != nil {
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
	}
	if params.PayrollHandler != nil {
		r.Route("/payroll", params.PayrollHandler.MountRoutes)
	}
	if params.TransactionHandler != nil {
		r.Route("/transactions", params.TransactionHandler.MountRoutes)
	}
	if params.PeriodsHandler != nil {
		r.Route("/periods", params.PeriodsHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
