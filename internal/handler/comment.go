package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/videotube/internal/response"
	"github.com/sakif/videotube/internal/service"
)

// CommentHandler serves /comments.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type contentRequest struct {
	Content string `json:"content"`
}

// HTTP: GET /api/v1/comments/{videoId}?page=1&limit=10
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	videoID, err := requireParam(r, "videoId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	page, err := h.comments.List(r.Context(), user.ID, videoID, pageParams(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, pageData("comments", page), "Got all comments successfully")
}

// HTTP: POST /api/v1/comments/{videoId}
// REQUEST BODY: {"content": "nice video"}
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	videoID, err := requireParam(r, "videoId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var body contentRequest
	if err := decodeJSON(r, &body, false); err != nil {
		response.Error(w, r, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), user, videoID, body.Content)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, comment, "Comment added successfully")
}

// HTTP: PATCH /api/v1/comments/c/{commentId}
// REQUEST BODY: {"updatedContent": "..."} ("content" is accepted too)
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "commentId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var body struct {
		UpdatedContent string `json:"updatedContent"`
		Content        string `json:"content"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		response.Error(w, r, err)
		return
	}
	content := body.UpdatedContent
	if content == "" {
		content = body.Content
	}

	comment, err := h.comments.Update(r.Context(), user.ID, id, content)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, comment, "Comment updated successfully")
}

// HTTP: DELETE /api/v1/comments/c/{commentId}
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "commentId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.comments.Delete(r.Context(), user.ID, id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, response.Empty, "Comment deleted successfully")
}
