package handlers

import (
	"net/http"
	"time"

	"github.com/verdantchat/gatekeeper/internal/ratelimit"
	"github.com/verdantchat/gatekeeper/internal/services"
	pkghttp "github.com/verdantchat/gatekeeper/pkg/http"
)

// StatusHandler exposes operator-facing runtime state.
type StatusHandler struct {
	admission   *services.AdmissionController
	gate        *ratelimit.CooldownGate
	failures    *ratelimit.FailureTracker
	alertWindow time.Duration
}

// NewStatusHandler creates the handler. alertWindow matches the messenger's
// failure-alert window so operators see the same number the alert uses.
func NewStatusHandler(admission *services.AdmissionController, gate *ratelimit.CooldownGate, failures *ratelimit.FailureTracker, alertWindow time.Duration) *StatusHandler {
	return &StatusHandler{admission: admission, gate: gate, failures: failures, alertWindow: alertWindow}
}

// StatusResponse is the ops status body.
type StatusResponse struct {
	ActiveSessions           int  `json:"active_sessions"`
	CooldownActive           bool `json:"cooldown_active"`
	CooldownRemainingSeconds int  `json:"cooldown_remaining_seconds"`
	RecentSendFailures       int  `json:"recent_send_failures"`
}

// Get handles GET /v1/status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{
		ActiveSessions:           h.admission.ActiveCount(),
		CooldownActive:           h.gate.IsBlocked(),
		CooldownRemainingSeconds: h.gate.RemainingSeconds(),
		RecentSendFailures:       h.failures.RecentFailureCount(h.alertWindow),
	})
}

// Health handles GET /health, the keep-alive ping target.
func Health(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
