package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/response"
	"github.com/sakif/videotube/internal/service"
)

// PlaylistHandler serves /playlists.
type PlaylistHandler struct {
	playlists *service.PlaylistService
	logger    *slog.Logger
}

func NewPlaylistHandler(playlists *service.PlaylistService, logger *slog.Logger) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, logger: logger}
}

// HTTP: POST /api/v1/playlists
// REQUEST BODY: {"name": "...", "description": "..."}
func (h *PlaylistHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var in service.PlaylistInput
	if err := decodeJSON(r, &in, false); err != nil {
		response.Error(w, r, err)
		return
	}
	p, err := h.playlists.Create(r.Context(), user, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, p, "Playlist created successfully")
}

// HTTP: GET /api/v1/playlists/{playlistId}
func (h *PlaylistHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := requireParam(r, "playlistId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	p, err := h.playlists.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, p, "Playlist fetched successfully")
}

// HTTP: GET /api/v1/playlists/user/{userId}
func (h *PlaylistHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := requireParam(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	lists, err := h.playlists.ListByUser(r.Context(), userID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, lists, "Got all playlists successfully")
}

// HTTP: PATCH /api/v1/playlists/{playlistId}
func (h *PlaylistHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "playlistId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var in service.UpdatePlaylistInput
	if err := decodeJSON(r, &in, false); err != nil {
		response.Error(w, r, err)
		return
	}
	p, err := h.playlists.Update(r.Context(), user.ID, id, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, p, "Playlist updated successfully")
}

// HTTP: DELETE /api/v1/playlists/{playlistId}
func (h *PlaylistHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := requireParam(r, "playlistId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.playlists.Delete(r.Context(), user.ID, id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, response.Empty, "Playlist deleted successfully")
}

// HTTP: PATCH /api/v1/playlists/add/{videoId}/{playlistId}
func (h *PlaylistHandler) HandleAddVideo(w http.ResponseWriter, r *http.Request) {
	h.changeVideos(w, r, h.playlists.AddVideo, "Video added successfully")
}

// HTTP: PATCH /api/v1/playlists/remove/{videoId}/{playlistId}
func (h *PlaylistHandler) HandleRemoveVideo(w http.ResponseWriter, r *http.Request) {
	h.changeVideos(w, r, h.playlists.RemoveVideo, "Video removed successfully")
}

func (h *PlaylistHandler) changeVideos(
	w http.ResponseWriter,
	r *http.Request,
	change func(ctx context.Context, userID, videoID, playlistID string) (*model.Playlist, error),
	message string,
) {
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
	playlistID, err := requireParam(r, "playlistId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	p, err := change(r.Context(), user.ID, videoID, playlistID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, p, message)
}
