package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/response"
	"github.com/sakif/videotube/internal/service"
	"github.com/sakif/videotube/internal/storage"
)

// AccountHandler serves the signed-in user's own account and the channel
// read models under /users.
type AccountHandler struct {
	accounts *service.AccountService
	channels *service.ChannelService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, channels *service.ChannelService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, channels: channels, logger: logger}
}

// HTTP: POST /api/v1/users/change-password
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var in service.ChangePasswordInput
	if err := decodeJSON(r, &in, false); err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), user.ID, in); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, response.Empty, "Password changed successfully")
}

// HTTP: GET /api/v1/users/current-user
func (h *AccountHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user, "Current user fetched successfully")
}

// HTTP: PATCH /api/v1/users/update-account
func (h *AccountHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var in service.UpdateAccountInput
	if err := decodeJSON(r, &in, false); err != nil {
		response.Error(w, r, err)
		return
	}
	updated, err := h.accounts.UpdateAccount(r.Context(), user.ID, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, updated, "User details updated successfully")
}

// HTTP: PATCH /api/v1/users/update-avatar (multipart field "avatar")
func (h *AccountHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.accounts.UpdateAvatar, "User avatar updated successfully")
}

// HTTP: PATCH /api/v1/users/update-coverimage (multipart field "coverImage")
func (h *AccountHandler) HandleUpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.accounts.UpdateCoverImage, "User cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID string, file *storage.Upload) (*model.User, error)

func (h *AccountHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, message string) {
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

	file, err := f.file(field)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	updated, err := update(r.Context(), user.ID, file)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, updated, message)
}

// HandleChannelProfile returns a channel's public profile as seen by the
// signed-in user.
//
// HTTP: GET /api/v1/users/c/{username}
func (h *AccountHandler) HandleChannelProfile(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	profile, err := h.channels.Profile(r.Context(), chi.URLParam(r, "username"), user.ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, profile, "Channel fetched successfully")
}

// HTTP: GET /api/v1/users/history
func (h *AccountHandler) HandleWatchHistory(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	history, err := h.channels.WatchHistory(r.Context(), user.ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if history == nil {
		history = []model.WatchedVideo{}
	}
	response.JSON(w, r, http.StatusOK, history, "Successfully fetched the watch history")
}
