package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/videotube/internal/response"
	"github.com/sakif/videotube/internal/service"
)

// SubscriptionHandler serves /subscriptions.
type SubscriptionHandler struct {
	subs   *service.SubscriptionService
	logger *slog.Logger
}

func NewSubscriptionHandler(subs *service.SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, logger: logger}
}

// HTTP: POST /api/v1/subscriptions/c/{channelId}
func (h *SubscriptionHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	channelID, err := requireParam(r, "channelId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	sub, err := h.subs.Toggle(r.Context(), user.ID, channelID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if sub == nil {
		response.JSON(w, r, http.StatusOK, response.Empty, "Successfully unsubscribed")
		return
	}
	response.JSON(w, r, http.StatusOK, sub, "Successfully subscribed")
}

// HTTP: GET /api/v1/subscriptions/c/{channelId}
func (h *SubscriptionHandler) HandleSubscribers(w http.ResponseWriter, r *http.Request) {
	channelID, err := requireParam(r, "channelId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	subscribers, err := h.subs.Subscribers(r.Context(), channelID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, subscribers, "List of Subscribers")
}

// HTTP: GET /api/v1/subscriptions/u/{subscriberId}
func (h *SubscriptionHandler) HandleSubscribedChannels(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := requireParam(r, "subscriberId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	channels, err := h.subs.SubscribedChannels(r.Context(), subscriberID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, channels, "List of Subscriptions")
}
