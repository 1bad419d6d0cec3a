package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/verdantchat/gatekeeper/internal/delivery"
	"github.com/verdantchat/gatekeeper/internal/models"
	pkghttp "github.com/verdantchat/gatekeeper/pkg/http"
)

// ReplyHandler receives private-channel messages the gateway forwards and
// routes them to the session waiting on them.
type ReplyHandler struct {
	router   *delivery.ReplyRouter
	logger   *slog.Logger
	validate *validator.Validate
}

// NewReplyHandler creates the handler.
func NewReplyHandler(router *delivery.ReplyRouter, logger *slog.Logger) *ReplyHandler {
	return &ReplyHandler{router: router, logger: logger, validate: validator.New()}
}

// Post handles POST /v1/replies.
func (h *ReplyHandler) Post(w http.ResponseWriter, r *http.Request) {
	var reply models.Reply
	if err := json.NewDecoder(r.Body).Decode(&reply); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(reply); err != nil {
		pkghttp.WriteBadRequest(w, "user_id and channel_id are required")
		return
	}

	delivered := h.router.Deliver(reply.UserID, reply.ChannelID, reply.Content)
	if !delivered {
		// Nobody is waiting; the message is outside any quiz exchange
		h.logger.Debug("reply dropped, no session waiting",
			slog.String("user_id", reply.UserID),
			slog.String("channel_id", reply.ChannelID))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"delivered": delivered})
}
