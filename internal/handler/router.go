// internal/handler/router.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/controller"
)

// NewRouter mounts the customer endpoints under /api/customers next to the
// health and metrics endpoints. Every origin may call the API.
func NewRouter(customerController *controller.CustomerController, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", customerController.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/customers", func(r chi.Router) {
		r.Use(Metrics)

		r.Get("/", customerController.ListCustomers)
		r.Post("/", customerController.CreateCustomer)
		r.Put("/{id}", customerController.UpdateCustomer)
		r.Delete("/{id}", customerController.DeleteCustomer)
	})

	return r
}
