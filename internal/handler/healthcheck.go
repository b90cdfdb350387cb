package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/response"
)

// Pinger is satisfied by every store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the server can reach its store.
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// HTTP: GET /api/v1/healthcheck
func (h *HealthHandler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("healthcheck: store unreachable", slog.String("error", err.Error()))
		response.Error(w, r, apperror.Internal("Store is unreachable"))
		return
	}
	response.JSON(w, r, http.StatusOK, "Server is healthy", "OK")
}
