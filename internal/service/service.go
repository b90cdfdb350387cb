// Package service contains the business rules of videotube.
//
// Each service sits between the HTTP handlers and the repositories:
//
//	Handler (HTTP) → Service (rules, ownership, assets) → Repository (store)
//	                                                    ↘ AssetStore (S3)
//
// Services take plain Go values, never *http.Request, and return
// *apperror.AppError values for anything the client should see. The handler
// layer maps those onto status codes.
//
// Services depend on repository interfaces, so tests can run them against
// the in-memory sqlite backend and the storagetest fake without any HTTP.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
	"github.com/sakif/videotube/internal/storage"
	"github.com/sakif/videotube/internal/validation"
)

// PageParams is the pagination part of a list request as the client sent it.
// Zero values mean "use the default".
type PageParams struct {
	Page     int
	Limit    int
	SortBy   string
	SortType string // "asc" or "desc"
}

// options normalizes p into repository options. sortBy values outside
// allowed fall back to createdAt; any sortType other than "asc" sorts
// descending.
func (p PageParams) options(allowed []string) (repository.ListOptions, int) {
	page := p.Page
	if page < 1 {
		page = 1
	}
	opts := repository.ListOptions{
		Limit:  p.Limit,
		SortBy: p.SortBy,
		Desc:   !strings.EqualFold(p.SortType, "asc"),
	}
	if !repository.ValidSort(opts.SortBy, allowed) {
		opts.SortBy = repository.SortCreatedAt
	}
	opts = opts.Normalized()
	opts.Offset = (page - 1) * opts.Limit
	return opts, page
}

// defaultSortKeys are the keys accepted by comment and tweet listings.
var defaultSortKeys = []string{repository.SortCreatedAt, repository.SortUpdatedAt}

// requireOwner returns Forbidden with message unless userID owns the resource.
func requireOwner(owner model.OwnerSummary, userID, message string) error {
	if owner.ID != userID {
		return apperror.Forbidden(message)
	}
	return nil
}

// visibleVideo loads videoID as viewerID may see it: an unpublished video
// is NotFound to everyone but its owner.
func visibleVideo(ctx context.Context, videos repository.VideoRepository, viewerID, videoID string) (*model.Video, error) {
	v, err := videos.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !v.IsPublished && v.Owner.ID != viewerID {
		return nil, apperror.NotFound("video", videoID)
	}
	return v, nil
}

// validate runs the struct validator and, when message is set, replaces the
// top-level message while keeping the per-field details.
func validate(in any, message string) error {
	err := validation.Struct(in)
	if err == nil || message == "" {
		return err
	}
	if appErr, ok := err.(*apperror.AppError); ok {
		appErr.Message = message
	}
	return err
}

// blank reports whether s is empty after trimming.
func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// removeAsset deletes url from the store, logging instead of failing. It is
// used for assets that were just replaced or orphaned.
func removeAsset(ctx context.Context, assets storage.AssetStore, logger *slog.Logger, url string) {
	if url == "" {
		return
	}
	if err := assets.Delete(ctx, url); err != nil {
		logger.Warn("failed to delete replaced asset",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}
