package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/response"
	"github.com/sakif/videotube/internal/service"
)

// LikeHandler serves /likes.
type LikeHandler struct {
	likes  *service.LikeService
	logger *slog.Logger
}

func NewLikeHandler(likes *service.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{likes: likes, logger: logger}
}

// HTTP: POST /api/v1/likes/toggle/v/{videoId}
func (h *LikeHandler) HandleToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.LikeVideo, "videoId", "Video liked Successfully")
}

// HTTP: POST /api/v1/likes/toggle/c/{commentId}
func (h *LikeHandler) HandleToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.LikeComment, "commentId", "comment liked Successfully")
}

// HTTP: POST /api/v1/likes/toggle/t/{tweetId}
func (h *LikeHandler) HandleToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.LikeTweet, "tweetId", "tweet liked Successfully")
}

func (h *LikeHandler) toggle(w http.ResponseWriter, r *http.Request, kind model.LikeKind, param, likedMessage string) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, param)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	like, err := h.likes.Toggle(r.Context(), user.ID, model.LikeTarget{Kind: kind, ID: id})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if like == nil {
		response.JSON(w, r, http.StatusOK, response.Empty, "Successfully unliked")
		return
	}
	response.JSON(w, r, http.StatusOK, like, likedMessage)
}

// HTTP: GET /api/v1/likes/videos
func (h *LikeHandler) HandleLikedVideos(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	videos, err := h.likes.LikedVideos(r.Context(), user.ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, videos, "Liked videos fetched successfully")
}
