package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/avelines/creator-ledger/internal/billing"
	"github.com/avelines/creator-ledger/internal/intake"
	"github.com/avelines/creator-ledger/internal/payout"
	"github.com/avelines/creator-ledger/internal/transport/middleware"
	"github.com/avelines/creator-ledger/internal/transport/swagger"
	"github.com/avelines/creator-ledger/internal/wallet"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	billingHandler *billing.Handler,
	walletHandler *wallet.Handler,
	payoutHandler *payout.Handler,
	webhookHandler *intake.Handler,
	webhookSecret string,
	logger *slog.Logger,
) {
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

		// Gateway webhook; the signature middleware rejects unauthentic
		// deliveries before they reach the intake pipeline.
		if webhookHandler != nil {
			r.Group(func(wr chi.Router) {
				wr.Use(middleware.VerifySignature(webhookSecret, logger))
				wr.Post("/webhooks/payment", webhookHandler.HandleWebhook)
			})
		}

		if billingHandler != nil {
			r.Route("/billing", func(br chi.Router) {
				br.Post("/subscriptions", billingHandler.CreateSubscription)
				br.Post("/purchases", billingHandler.CreatePurchase)
				br.Post("/tips", billingHandler.CreateTip)
				br.Get("/transactions/{transactionID}", billingHandler.GetTransaction)
			})
		}

		if walletHandler != nil {
			r.Route("/wallets/{subjectID}", func(wr chi.Router) {
				wr.Use(middleware.SubjectContext("subjectID"))
				wr.Get("/", walletHandler.GetWallet)
				wr.Get("/entries", walletHandler.GetStatement)
			})
		}

		if payoutHandler != nil {
			r.Route("/payouts", func(pr chi.Router) {
				pr.Post("/", payoutHandler.RequestPayout)
				pr.Get("/", payoutHandler.ListPayouts)
				pr.Get("/{payoutID}", payoutHandler.GetPayout)
				pr.Post("/{payoutID}/cancel", payoutHandler.CancelPayout)
			})
			r.Get("/creators/{creatorID}/payouts", payoutHandler.GetPayoutHistory)
		}
	})
}
