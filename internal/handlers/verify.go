package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/verdantchat/gatekeeper/internal/models"
	"github.com/verdantchat/gatekeeper/internal/ratelimit"
	"github.com/verdantchat/gatekeeper/internal/services"
	pkghttp "github.com/verdantchat/gatekeeper/pkg/http"
)

// VerificationHandler accepts gateway-forwarded verification commands.
type VerificationHandler struct {
	quiz     *services.QuizService
	gate     *ratelimit.CooldownGate
	logger   *slog.Logger
	validate *validator.Validate

	// Global burst throttle on verification starts, independent of any
	// per-user limit.
	burstWindow time.Duration
	mu          sync.Mutex
	lastStart   time.Time
	now         func() time.Time
}

// NewVerificationHandler creates the handler. burstWindow is the minimum
// spacing between any two verification starts process-wide.
func NewVerificationHandler(quiz *services.QuizService, gate *ratelimit.CooldownGate, burstWindow time.Duration, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{
		quiz:        quiz,
		gate:        gate,
		logger:      logger,
		validate:    validator.New(),
		burstWindow: burstWindow,
		now:         time.Now,
	}
}

// StartResponse is the body returned when a quiz session begins.
type StartResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Start handles POST /v1/verify.
func (h *VerificationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		pkghttp.WriteBadRequest(w, "user_id, username and channel_id are required")
		return
	}

	// Refuse new work while the global cooldown is in force
	if h.gate.IsBlocked() {
		mins := h.gate.RemainingSeconds() / 60
		if mins < 1 {
			mins = 1
		}
		pkghttp.WriteServiceUnavailable(w, fmt.Sprintf(
			"The bot is cooling down due to rate limits. Please try again in ~%d minute(s).", mins))
		return
	}

	if !h.admitBurst() {
		pkghttp.WriteTooManyRequests(w,
			"Too many users are verifying right now. Please wait a few seconds and try again.")
		return
	}

	sessionID, err := h.quiz.Start(r.Context(), req)
	if err != nil {
		h.writeRejection(w, req.UserID, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, StartResponse{
		SessionID: sessionID,
		Message:   "Check your private messages, your quiz is starting!",
	})
}

// admitBurst enforces the process-wide spacing between starts.
func (h *VerificationHandler) admitBurst() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if !h.lastStart.IsZero() && now.Sub(h.lastStart) < h.burstWindow {
		return false
	}
	h.lastStart = now
	return true
}

func (h *VerificationHandler) writeRejection(w http.ResponseWriter, userID string, err error) {
	message := h.quiz.RejectionMessage(err)

	switch {
	case errors.Is(err, models.ErrOnCooldown),
		errors.Is(err, models.ErrAttemptsExceeded),
		errors.Is(err, models.ErrTooManySessions),
		errors.Is(err, models.ErrSessionActive):
		pkghttp.WriteTooManyRequests(w, message)
	case errors.Is(err, models.ErrAlreadyVerified),
		errors.Is(err, models.ErrNotEligible):
		pkghttp.WriteError(w, http.StatusForbidden, "not_eligible", message)
	default:
		h.logger.Error("verification start failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, message)
	}
}
