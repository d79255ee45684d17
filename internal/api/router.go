package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/bizmarket/internal/api/middleware"
)

const requestTimeout = 15 * time.Second

func NewRouter(handlers *Handlers, validator middleware.TokenValidator, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(validator))

		// Long-lived; must stay outside the request timeout.
		r.Get("/notifications/stream", handlers.StreamNotifications)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", handlers.ListOrders)
				r.Post("/", handlers.PlaceOrder)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", handlers.GetOrder)
					r.Post("/status", handlers.UpdateOrderStatus)
					r.Post("/cancel", handlers.CancelOrder)
					r.Post("/inventory/reapply", handlers.ReapplyInventory)
				})
			})

			r.Get("/products/{id}/movements", handlers.ListProductMovements)

			r.Get("/notifications", handlers.ListNotifications)
			r.Post("/notifications/{id}/read", handlers.MarkNotificationRead)
		})
	})

	return r
}
