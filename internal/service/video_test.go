package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/repository"
)

func TestPublishVideo(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "alice")
	svc := env.videoService()
	ctx := context.Background()

	v := env.publish(t, owner, "intro")
	if !v.IsPublished {
		t.Error("new videos should be published")
	}
	if v.Owner.ID != owner.ID {
		t.Errorf("owner = %q, want %q", v.Owner.ID, owner.ID)
	}
	if !env.assets.Has(v.VideoFile) || !env.assets.Has(v.Thumbnail) {
		t.Error("video file or thumbnail not stored")
	}

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Publish(ctx, owner, PublishVideoInput{Title: "x", VideoFile: testUpload("a.mp4"), Thumbnail: testUpload("a.png")})
		wantErr(t, err, apperror.ErrValidation, "All fields are required")
	})

	t.Run("missing files", func(t *testing.T) {
		_, err := svc.Publish(ctx, owner, PublishVideoInput{Title: "x", Description: "y", VideoFile: testUpload("a.mp4")})
		wantErr(t, err, apperror.ErrValidation, "Video or thumbnail not found")
	})
}

func TestVideoList_PaginationAndVisibility(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	svc := env.videoService()
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		env.publish(t, alice, fmt.Sprintf("video-%02d", i))
	}
	hidden := env.publish(t, alice, "draft")
	if _, err := svc.TogglePublish(ctx, alice.ID, hidden.ID); err != nil {
		t.Fatalf("TogglePublish() error = %v", err)
	}

	page, err := svc.List(ctx, bob.ID, VideoQuery{
		PageParams: PageParams{Page: 2, Limit: 5, SortBy: repository.SortTitle, SortType: "asc"},
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Pagination.TotalItems != 12 || page.Pagination.TotalPages != 3 {
		t.Errorf("pagination = %+v, want 12 items over 3 pages", page.Pagination)
	}
	if len(page.Items) != 5 || page.Items[0].Title != "video-06" || page.Items[4].Title != "video-10" {
		t.Errorf("page 2 = %v..., want video-06..video-10", page.Items)
	}

	own, err := svc.List(ctx, alice.ID, VideoQuery{UserID: alice.ID, PageParams: PageParams{Limit: 50}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if own.Pagination.TotalItems != 13 {
		t.Errorf("owner sees %d videos, want 13 including the draft", own.Pagination.TotalItems)
	}

	_, err = svc.Watch(ctx, bob.ID, hidden.ID)
	wantErr(t, err, apperror.ErrNotFound, "")
}

func TestWatch_CountsViewAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	svc := env.videoService()
	ctx := context.Background()

	first := env.publish(t, alice, "first")
	second := env.publish(t, alice, "second")

	for _, id := range []string{first.ID, second.ID, first.ID} {
		if _, err := svc.Watch(ctx, bob.ID, id); err != nil {
			t.Fatalf("Watch(%s) error = %v", id, err)
		}
	}

	got, err := env.db.GetVideoByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetVideoByID() error = %v", err)
	}
	if got.Views != 2 {
		t.Errorf("views = %d, want 2", got.Views)
	}

	history, err := NewChannelService(env.db, env.logger).WatchHistory(ctx, bob.ID)
	if err != nil {
		t.Fatalf("WatchHistory() error = %v", err)
	}
	if len(history) != 2 || history[0].ID != second.ID || history[1].ID != first.ID {
		t.Errorf("history order = %v, want [second, first]", history)
	}
}

func TestVideoOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	mallory := env.register(t, "mallory")
	svc := env.videoService()
	ctx := context.Background()
	v := env.publish(t, alice, "mine")

	_, err := svc.Update(ctx, mallory.ID, v.ID, UpdateVideoInput{Title: strPtr("stolen")})
	wantErr(t, err, apperror.ErrForbidden, "You are not authorized to do this")

	err = svc.Delete(ctx, mallory.ID, v.ID)
	wantErr(t, err, apperror.ErrForbidden, "")

	_, err = svc.TogglePublish(ctx, mallory.ID, v.ID)
	wantErr(t, err, apperror.ErrForbidden, "")
}

func TestVideoUpdate_ReplacesThumbnail(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	svc := env.videoService()
	ctx := context.Background()
	v := env.publish(t, alice, "clip")
	oldThumb := v.Thumbnail

	updated, err := svc.Update(ctx, alice.ID, v.ID, UpdateVideoInput{
		Description: strPtr("new description"),
		Thumbnail:   testUpload("fresh.png"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "clip" || updated.Description != "new description" {
		t.Errorf("title/description = %q/%q", updated.Title, updated.Description)
	}
	if env.assets.Has(oldThumb) || !env.assets.Has(updated.Thumbnail) {
		t.Error("thumbnail not replaced in the asset store")
	}

	_, err = svc.Update(ctx, alice.ID, v.ID, UpdateVideoInput{})
	wantErr(t, err, apperror.ErrValidation, "Nothing to update")
}

func TestVideoDelete(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	svc := env.videoService()
	ctx := context.Background()

	t.Run("asset deletion fails keeps the record", func(t *testing.T) {
		v := env.publish(t, alice, "sticky")
		env.assets.SetFailDelete(true)
		t.Cleanup(func() { env.assets.SetFailDelete(false) })

		err := svc.Delete(ctx, alice.ID, v.ID)
		wantErr(t, err, apperror.ErrInternal, "Error in deleting the video")

		if _, err := env.db.GetVideoByID(ctx, v.ID); err != nil {
			t.Errorf("record removed despite failed asset deletion: %v", err)
		}
	})

	t.Run("removes files and record", func(t *testing.T) {
		v := env.publish(t, alice, "gone")
		if err := svc.Delete(ctx, alice.ID, v.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if env.assets.Has(v.VideoFile) || env.assets.Has(v.Thumbnail) {
			t.Error("files still stored")
		}
		_, err := env.db.GetVideoByID(ctx, v.ID)
		wantErr(t, err, apperror.ErrNotFound, "")
	})
}

func TestTogglePublish_TwiceRestores(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	svc := env.videoService()
	ctx := context.Background()
	v := env.publish(t, alice, "flip")

	off, err := svc.TogglePublish(ctx, alice.ID, v.ID)
	if err != nil || off.IsPublished {
		t.Fatalf("first toggle: published=%v err=%v", off != nil && off.IsPublished, err)
	}
	on, err := svc.TogglePublish(ctx, alice.ID, v.ID)
	if err != nil || !on.IsPublished {
		t.Fatalf("second toggle: published=%v err=%v", on != nil && on.IsPublished, err)
	}
}
