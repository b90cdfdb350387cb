package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/auth"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
	"github.com/sakif/videotube/internal/storage"
)

// AccountService manages a signed-in user's own profile.
type AccountService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	assets    storage.AssetStore
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	assets storage.AssetStore,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{users: users, passwords: passwords, assets: assets, logger: logger}
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword" validate:"max=72"`
}

// UpdateAccountInput carries the fields to change; nil leaves a field alone.
type UpdateAccountInput struct {
	FullName *string `json:"fullName" validate:"omitnil,notblank,max=100"`
	Email    *string `json:"email" validate:"omitnil,notblank,email"`
}

func (s *AccountService) Get(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/account: loading user %s: %w", userID, err)
	}
	return u, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if in.OldPassword == "" || in.NewPassword == "" {
		return apperror.BadRequest("Old password and new password are required")
	}
	if err := validate(in, ""); err != nil {
		return err
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.passwords.Verify(u.PasswordHash, in.OldPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return apperror.Unauthorized("Old Password is incorrect")
		}
		return fmt.Errorf("service/account: verifying password: %w", err)
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("service/account: hashing password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("service/account: saving password: %w", err)
	}
	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

func (s *AccountService) UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (*model.User, error) {
	if in.FullName == nil && in.Email == nil {
		return nil, apperror.BadRequest("At least one of fullName or email is required")
	}
	if err := validate(in, ""); err != nil {
		return nil, err
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if err := s.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: updating user %s: %w", userID, err)
	}
	return u, nil
}

// UpdateAvatar replaces the avatar. The previous file is deleted after the
// record points at the new one; a failed delete only leaves an orphan.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID string, file *storage.Upload) (*model.User, error) {
	if file == nil {
		return nil, apperror.BadRequest("Avatar is required")
	}
	return s.replaceImage(ctx, userID, *file, storage.FolderAvatars, "Error while uploading avatar",
		func(u *model.User) *string { return &u.Avatar })
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, userID string, file *storage.Upload) (*model.User, error) {
	if file == nil {
		return nil, apperror.BadRequest("Cover image is required")
	}
	return s.replaceImage(ctx, userID, *file, storage.FolderCovers, "Error while uploading cover image",
		func(u *model.User) *string { return &u.CoverImage })
}

func (s *AccountService) replaceImage(
	ctx context.Context,
	userID string,
	file storage.Upload,
	folder, failMessage string,
	field func(*model.User) *string,
) (*model.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	asset, err := s.assets.Upload(ctx, folder, file)
	if err != nil {
		s.logger.Error("image upload failed", slog.String("folder", folder), slog.String("error", err.Error()))
		return nil, apperror.Internal(failMessage)
	}

	slot := field(u)
	old := *slot
	*slot = asset.URL
	if err := s.users.UpdateUser(ctx, u); err != nil {
		removeAsset(ctx, s.assets, s.logger, asset.URL)
		return nil, fmt.Errorf("service/account: saving %s: %w", folder, err)
	}
	removeAsset(ctx, s.assets, s.logger, old)
	return u, nil
}
