package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// CommandRateLimit is the per-user limit on the verification command itself.
// It layers above the admission controller's own cooldown check, the same
// way the chat platform's command cooldown does.
type CommandRateLimit struct {
	Requests int
	Window   time.Duration
}

// DefaultCommandRateLimit allows one verification command per user every
// two minutes.
func DefaultCommandRateLimit() CommandRateLimit {
	return CommandRateLimit{Requests: 1, Window: 2 * time.Minute}
}

// RateLimitByUser limits requests by the gateway-supplied user header,
// falling back to client IP when the header is absent.
func RateLimitByUser(config CommandRateLimit) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if userID := r.Header.Get("X-Gatekeeper-User"); userID != "" {
				return userID, nil
			}
			return httprate.KeyByRealIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limit_exceeded","message":"You're on cooldown for this command. Please try again in a couple of minutes."}`))
		}),
	)
}

// RateLimitByIP limits requests by client IP; used on the ops endpoints.
func RateLimitByIP(requestsPerMinute int) func(next http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	)
}
