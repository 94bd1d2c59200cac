package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/accounts"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/journals"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/mappings"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/periods"
	"github.com/bigblink-erp/bigblink-erp/internal/ap"
	"github.com/bigblink-erp/bigblink-erp/internal/ar"
	"github.com/bigblink-erp/bigblink-erp/internal/audit"
	"github.com/bigblink-erp/bigblink-erp/internal/auth"
	"github.com/bigblink-erp/bigblink-erp/internal/billing/costs"
	"github.com/bigblink-erp/bigblink-erp/internal/billing/invoices"
	"github.com/bigblink-erp/bigblink-erp/internal/export"
	"github.com/bigblink-erp/bigblink-erp/internal/freight"
	"github.com/bigblink-erp/bigblink-erp/internal/masterdata/suppliers"
	"github.com/bigblink-erp/bigblink-erp/internal/observability"
	"github.com/bigblink-erp/bigblink-erp/internal/procurement"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/customers"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/quotations"
	"github.com/bigblink-erp/bigblink-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Auth        *auth.Service
	AuthHandler *auth.Handler

	CustomersHandler   *customers.Handler
	SuppliersHandler   *suppliers.Handler
	QuotationsHandler  *quotations.Handler
	InvoicesHandler    *invoices.Handler
	CostsHandler       *costs.Handler
	ProcurementHandler *procurement.Handler
	ARHandler          *ar.Handler
	APHandler          *ap.Handler
	FreightHandler     *freight.Handler

	AccountsHandler *accounts.Handler
	PeriodsHandler  *periods.Handler
	JournalsHandler *journals.Handler
	MappingsHandler *mappings.Handler

	ExportHandler *export.Handler
	AuditHandler  *audit.Handler
	JobsHandler   *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountPublicRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.Auth.Middleware)

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			params.AuthHandler.MountAdminRoutes(r)
		})

		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		r.Route("/quotations", params.QuotationsHandler.MountRoutes)
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		r.Route("/costs", params.CostsHandler.MountRoutes)
		r.Route("/purchase-orders", params.ProcurementHandler.MountRoutes)
		r.Route("/ar", params.ARHandler.MountRoutes)
		r.Route("/ap", params.APHandler.MountRoutes)
		r.Route("/freight", params.FreightHandler.MountRoutes)

		r.Route("/accounting", func(r chi.Router) {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
			r.Route("/periods", params.PeriodsHandler.MountRoutes)
			r.Route("/journals", params.JournalsHandler.MountRoutes)
			r.Route("/mappings", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleFinance))
				params.MappingsHandler.MountRoutes(r)
			})
		})

		if params.ExportHandler != nil {
			exportLimit := 10
			if params.Config != nil && params.Config.ExportRateLimit > 0 {
				exportLimit = params.Config.ExportRateLimit
			}
			r.Route("/export", func(r chi.Router) {
				r.Use(httprate.Limit(exportLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
				params.ExportHandler.MountRoutes(r)
			})
		}

		if params.AuditHandler != nil {
			r.Route("/audit", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleFinance))
				params.AuditHandler.MountRoutes(r)
			})
		}

		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
