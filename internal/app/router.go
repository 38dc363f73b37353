package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-erp/comercio-erp/internal/billing"
	"github.com/comercio-erp/comercio-erp/internal/delivery"
	"github.com/comercio-erp/comercio-erp/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Pool            *pgxpool.Pool
	SalesHandler    *sales.Handler
	BillingHandler  *billing.Handler
	DeliveryHandler *delivery.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/sales-orders", func(r chi.Router) {
			params.SalesHandler.MountRoutes(r)
			r.Post("/{id}/invoice", params.BillingHandler.CreateFromOrder)
			r.Post("/{id}/delivery-note", params.DeliveryHandler.CreateFromOrder)
		})
		r.Route("/invoices", params.BillingHandler.MountRoutes)
		r.Route("/delivery-notes", params.DeliveryHandler.MountRoutes)
	})

	return r
}
