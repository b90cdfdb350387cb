package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/videotube/internal/response"
	"github.com/sakif/videotube/internal/service"
)

// TweetHandler serves /tweets.
type TweetHandler struct {
	tweets *service.TweetService
	logger *slog.Logger
}

func NewTweetHandler(tweets *service.TweetService, logger *slog.Logger) *TweetHandler {
	return &TweetHandler{tweets: tweets, logger: logger}
}

// HTTP: POST /api/v1/tweets
// REQUEST BODY: {"content": "..."}
func (h *TweetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var body contentRequest
	if err := decodeJSON(r, &body, false); err != nil {
		response.Error(w, r, err)
		return
	}
	tweet, err := h.tweets.Create(r.Context(), user, body.Content)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, tweet, "Tweet Successfully created")
}

// HTTP: GET /api/v1/tweets/user/{userId}?page=1&limit=10
func (h *TweetHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := requireParam(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	page, err := h.tweets.ListByUser(r.Context(), userID, pageParams(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, pageData("tweets", page), "Got all tweets successfully")
}

// HTTP: PATCH /api/v1/tweets/{tweetId}
func (h *TweetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "tweetId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var body contentRequest
	if err := decodeJSON(r, &body, false); err != nil {
		response.Error(w, r, err)
		return
	}
	tweet, err := h.tweets.Update(r.Context(), user.ID, id, body.Content)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tweet, "Tweet updated successfully")
}

// HTTP: DELETE /api/v1/tweets/{tweetId}
func (h *TweetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "tweetId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.tweets.Delete(r.Context(), user.ID, id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, response.Empty, "Tweet deleted successfully")
}
