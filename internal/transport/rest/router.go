package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/billing-reconciliation/internal/transport/middleware"
	"github.com/frahmantamala/billing-reconciliation/internal/transport/swagger"
	"github.com/frahmantamala/billing-reconciliation/internal/webhook"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, webhookHandler *webhook.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Gateway webhook intake. No auth middleware here: authenticity
		// comes from the signature over the raw body.
		if webhookHandler != nil {
			r.Post("/webhooks/stripe", webhookHandler.HandleStripeWebhook)
		}
	})
}
