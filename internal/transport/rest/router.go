package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/hosted-checkout/internal/checkout"
	"github.com/frahmantamala/hosted-checkout/internal/payment"
	"github.com/frahmantamala/hosted-checkout/internal/tenant"
	"github.com/frahmantamala/hosted-checkout/internal/transport/middleware"
	"github.com/frahmantamala/hosted-checkout/internal/transport/swagger"
	"github.com/frahmantamala/hosted-checkout/internal/webhook"
)

// RegisterAllRoutes wires every endpoint under /api/v1. Three surfaces
// share the router: the merchant API behind API-key auth, the public
// checkout-page endpoints, and the unauthenticated webhook receiver whose
// auth is its signature.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, tenantHandler *tenant.Handler, checkoutHandler *checkout.Handler, paymentHandler *payment.Handler, webhookHandler *webhook.Handler, verifier middleware.KeyVerifier, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if webhookHandler != nil {
			r.Post("/webhook", webhookHandler.HandleEvent)
		}

		if tenantHandler != nil {
			r.Post("/tenants/register", tenantHandler.Register)
		}

		// checkout-page endpoints carry their own bearer token in the
		// query string, not an API key
		if checkoutHandler != nil {
			r.Get("/checkout/validate-token", checkoutHandler.ValidateToken)
		}

		if verifier != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(middleware.APIKeyAuth(verifier))

				if checkoutHandler != nil {
					pr.Post("/checkout/create", checkoutHandler.CreateCheckout)
				}

				if paymentHandler != nil {
					pr.Route("/payments", func(pmr chi.Router) {
						pmr.Get("/", paymentHandler.ListPayments)
						pmr.Get("/{id}", paymentHandler.GetPayment)
					})
				}

				if tenantHandler != nil {
					pr.Route("/tenants", func(tr chi.Router) {
						tr.Post("/credentials", tenantHandler.RotateCredentials)
						tr.Post("/api-key/rotate", tenantHandler.RotateAPIKey)
					})
				}
			})
		}
	})
}
