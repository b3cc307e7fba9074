package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caravel-dms/caravel/internal/catalog/categories"
	"github.com/caravel-dms/caravel/internal/catalog/clients"
	"github.com/caravel-dms/caravel/internal/catalog/drivers"
	"github.com/caravel-dms/caravel/internal/catalog/products"
	"github.com/caravel-dms/caravel/internal/catalog/suppliers"
	"github.com/caravel-dms/caravel/internal/delivery"
	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/lots"
	"github.com/caravel-dms/caravel/internal/observability"
	"github.com/caravel-dms/caravel/internal/orders"
	"github.com/caravel-dms/caravel/internal/payments"
	"github.com/caravel-dms/caravel/internal/procurement"
	"github.com/caravel-dms/caravel/internal/reports"
)

// Handlers collects every mounted HTTP handler.
type Handlers struct {
	Products    *products.Handler
	Categories  *categories.Handler
	Suppliers   *suppliers.Handler
	Clients     *clients.Handler
	Drivers     *drivers.Handler
	Inventory   *inventory.Handler
	Lots        *lots.Handler
	Procurement *procurement.Handler
	Orders      *orders.Handler
	Payments    *payments.Handler
	Delivery    *delivery.Handler
	Reports     *reports.Handler
}

// NewRouter assembles the HTTP router.
func NewRouter(logger *slog.Logger, cfg *Config, metrics *observability.Metrics, h Handlers) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: logger, Config: cfg, Metrics: metrics}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/products", h.Products.MountRoutes)
		api.Route("/categories", h.Categories.MountRoutes)
		api.Route("/suppliers", h.Suppliers.MountRoutes)
		api.Route("/clients", h.Clients.MountRoutes)
		api.Route("/drivers", h.Drivers.MountRoutes)
		api.Route("/movements", h.Inventory.MountRoutes)
		api.Route("/lots", h.Lots.MountRoutes)
		api.Route("/receipts", h.Procurement.MountRoutes)
		api.Route("/orders", func(o chi.Router) {
			h.Orders.MountRoutes(o)
			h.Delivery.MountRoutes(o)
			o.Route("/{id}/payments", h.Payments.MountRoutes)
		})
		api.Route("/reports", h.Reports.MountRoutes)
	})

	return r
}
