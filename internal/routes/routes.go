package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/verdantchat/gatekeeper/internal/handlers"
	"github.com/verdantchat/gatekeeper/internal/middleware"
)

// RegisterRoutes registers the gateway-facing and ops routes.
func RegisterRoutes(
	router chi.Router,
	verifyHandler *handlers.VerificationHandler,
	replyHandler *handlers.ReplyHandler,
	statusHandler *handlers.StatusHandler,
	gatewayToken string,
	commandLimit middleware.CommandRateLimit,
) {
	// Gateway-facing routes, authenticated by the shared token
	router.Group(func(r chi.Router) {
		r.Use(middleware.GatewayAuth(gatewayToken))

		// The command-level cooldown layers above the admission controller's
		// own per-user cooldown check
		r.With(middleware.RateLimitByUser(commandLimit)).Post("/v1/verify", verifyHandler.Start)
		r.Post("/v1/replies", replyHandler.Post)
		r.Get("/v1/status", statusHandler.Get)
	})

	// Keep-alive ping, unauthenticated but rate limited
	router.With(middleware.RateLimitByIP(60)).Get("/health", handlers.Health)
}
