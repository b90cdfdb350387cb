package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/videotube/internal/apperror"
)

func strPtr(s string) *string { return &s }

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice")
	svc := NewAccountService(env.db, env.passwords, env.assets, env.logger)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, u.ID, ChangePasswordInput{OldPassword: "wrong", NewPassword: "next-pass"})
	wantErr(t, err, apperror.ErrUnauthorized, "Old Password is incorrect")

	err = svc.ChangePassword(ctx, u.ID, ChangePasswordInput{OldPassword: "secret-pass"})
	wantErr(t, err, apperror.ErrValidation, "Old password and new password are required")

	if err := svc.ChangePassword(ctx, u.ID, ChangePasswordInput{OldPassword: "secret-pass", NewPassword: "next-pass"}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	login := env.authService()
	if _, err := login.Login(ctx, LoginInput{Username: "alice", Password: "secret-pass"}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("old password still accepted: %v", err)
	}
	if _, err := login.Login(ctx, LoginInput{Username: "alice", Password: "next-pass"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestUpdateAccount_Partial(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice")
	env.register(t, "bob")
	svc := NewAccountService(env.db, env.passwords, env.assets, env.logger)
	ctx := context.Background()

	updated, err := svc.UpdateAccount(ctx, u.ID, UpdateAccountInput{FullName: strPtr("Alice Cooper")})
	if err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if updated.FullName != "Alice Cooper" {
		t.Errorf("fullName = %q", updated.FullName)
	}
	if updated.Email != "alice@example.com" {
		t.Errorf("email changed to %q on a fullName-only update", updated.Email)
	}

	_, err = svc.UpdateAccount(ctx, u.ID, UpdateAccountInput{})
	wantErr(t, err, apperror.ErrValidation, "At least one of fullName or email is required")

	_, err = svc.UpdateAccount(ctx, u.ID, UpdateAccountInput{Email: strPtr("bob@example.com")})
	wantErr(t, err, apperror.ErrConflict, "")
}

func TestUpdateAvatar_ReplacesAndDeletesOld(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice")
	svc := NewAccountService(env.db, env.passwords, env.assets, env.logger)
	ctx := context.Background()
	oldAvatar := u.Avatar

	updated, err := svc.UpdateAvatar(ctx, u.ID, testUpload("new.png"))
	if err != nil {
		t.Fatalf("UpdateAvatar() error = %v", err)
	}
	if updated.Avatar == oldAvatar {
		t.Fatal("avatar URL unchanged")
	}
	if !env.assets.Has(updated.Avatar) {
		t.Error("new avatar not stored")
	}
	if env.assets.Has(oldAvatar) {
		t.Error("old avatar not deleted")
	}

	_, err = svc.UpdateAvatar(ctx, u.ID, nil)
	wantErr(t, err, apperror.ErrValidation, "Avatar is required")
}

func TestUpdateCoverImage_FailedSaveRemovesUpload(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice")
	users := &failingUsers{UserRepository: env.db, updateErr: errors.New("locked")}
	svc := NewAccountService(users, env.passwords, env.assets, env.logger)

	before := len(env.assets.Keys())
	if _, err := svc.UpdateCoverImage(context.Background(), u.ID, testUpload("cover.png")); err == nil {
		t.Fatal("expected an error")
	}
	if after := len(env.assets.Keys()); after != before {
		t.Errorf("stored objects = %d, want %d (upload not cleaned up)", after, before)
	}
}

func TestUpdateCoverImage_UploadFailure(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice")
	svc := NewAccountService(env.db, env.passwords, env.assets, env.logger)
	env.assets.FailUpload = true

	_, err := svc.UpdateCoverImage(context.Background(), u.ID, testUpload("cover.png"))
	wantErr(t, err, apperror.ErrInternal, "Error while uploading cover image")
}
