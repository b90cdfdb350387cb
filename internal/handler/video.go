package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/response"
	"github.com/sakif/videotube/internal/service"
)

// VideoHandler serves /videos. Every route is protected.
type VideoHandler struct {
	videos *service.VideoService
	logger *slog.Logger
}

func NewVideoHandler(videos *service.VideoService, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{videos: videos, logger: logger}
}

// HandleList returns one page of videos.
//
// HTTP: GET /api/v1/videos?page=1&limit=10&query=go&sortBy=views&sortType=desc&userId=...
func (h *VideoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	q := r.URL.Query()
	page, err := h.videos.List(r.Context(), user.ID, service.VideoQuery{
		PageParams: pageParams(r),
		Query:      q.Get("query"),
		UserID:     q.Get("userId"),
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, pageData("videos", page), "All videos fetched successfully")
}

// HandlePublish uploads a new video.
//
// HTTP: POST /api/v1/videos (multipart: videoFile, thumbnail, title, description, duration)
func (h *VideoHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	f, err := readForm(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	defer f.close()

	in := service.PublishVideoInput{
		Title:       f.value("title"),
		Description: f.value("description"),
	}
	if in.Duration, err = parseDuration(f.value("duration")); err != nil {
		response.Error(w, r, err)
		return
	}
	if in.VideoFile, err = f.file("videoFile"); err != nil {
		response.Error(w, r, err)
		return
	}
	if in.Thumbnail, err = f.file("thumbnail"); err != nil {
		response.Error(w, r, err)
		return
	}

	video, err := h.videos.Publish(r.Context(), user, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, video, "Video Published Successfully")
}

// parseDuration reads the optional duration field in seconds.
func parseDuration(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("duration", fmt.Sprintf("duration must be a number of seconds, got %q", raw))
	}
	return d, nil
}

// HandleGet returns a video and records the view.
//
// HTTP: GET /api/v1/videos/{videoId}
func (h *VideoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "videoId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	video, err := h.videos.Watch(r.Context(), user.ID, id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, video, "Video fetched successfully")
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// HandleUpdate changes title, description or thumbnail. The body is either
// JSON or multipart; only multipart can carry a new thumbnail.
//
// HTTP: PATCH /api/v1/videos/{videoId}
func (h *VideoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "videoId")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	var in service.UpdateVideoInput
	if isMultipart(r) {
		f, err := readForm(r)
		if err != nil {
			response.Error(w, r, err)
			return
		}
		defer f.close()

		in.Title = f.optional("title")
		in.Description = f.optional("description")
		if in.Thumbnail, err = f.file("thumbnail"); err != nil {
			response.Error(w, r, err)
			return
		}
	} else {
		var body updateVideoRequest
		if err := decodeJSON(r, &body, true); err != nil {
			response.Error(w, r, err)
			return
		}
		in.Title, in.Description = body.Title, body.Description
	}

	video, err := h.videos.Update(r.Context(), user.ID, id, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, video, "video updated successfully")
}

// HTTP: DELETE /api/v1/videos/{videoId}
func (h *VideoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "videoId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.videos.Delete(r.Context(), user.ID, id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, response.Empty, "Video deleted successfully")
}

// HTTP: PATCH /api/v1/videos/toggle/publish/{videoId}
func (h *VideoHandler) HandleTogglePublish(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "videoId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	video, err := h.videos.TogglePublish(r.Context(), user.ID, id)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	state := "Unpublished"
	if video.IsPublished {
		state = "Published"
	}
	response.JSON(w, r, http.StatusOK, video, "Video is now "+state)
}
