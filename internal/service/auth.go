package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/auth"
	"github.com/sakif/videotube/internal/metrics"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
	"github.com/sakif/videotube/internal/storage"
)

// AuthService owns registration, sign-in and the token lifecycle.
//
// DEPENDENCIES:
//   - users      repository.UserRepository → user records and the refresh token slot
//   - tokens     *auth.TokenService        → signs and verifies JWTs
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - assets     storage.AssetStore        → avatar and cover image uploads
//
// REFRESH TOKENS:
// Each user has a single refresh token slot. Sign-in overwrites it, sign-out
// clears it and a refresh swaps it for a new token in one compare-and-swap,
// so a token that has been rotated away can never be used again.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	assets    storage.AssetStore
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	assets storage.AssetStore,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		assets:    assets,
		logger:    logger,
	}
}

// TokenPair is what sign-in and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult bundles the user with the issued tokens so the handler can set
// the cookies and respond in one step.
type LoginResult struct {
	User   *model.User
	Tokens TokenPair
}

// RegisterInput is a registration form. Avatar is required, CoverImage is not.
type RegisterInput struct {
	Username   string `form:"username" validate:"notblank,max=30"`
	Email      string `form:"email" validate:"notblank,email"`
	FullName   string `form:"fullName" validate:"notblank,max=100"`
	Password   string `form:"password" validate:"notblank,max=72"`
	Avatar     *storage.Upload
	CoverImage *storage.Upload
}

// LoginInput accepts either a username or an email.
type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. The order of checks matches what clients
// rely on: missing fields, then an existing account, then the avatar.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ *model.User, err error) {
	defer func() { metrics.RecordAuth("register", err) }()

	if blank(in.Username) || blank(in.Email) || blank(in.FullName) || blank(in.Password) {
		return nil, apperror.BadRequest("All fields are required")
	}
	if err := validate(in, ""); err != nil {
		return nil, err
	}

	existing, err := s.users.FindUserByLogin(ctx, in.Username, in.Email)
	if err == nil && existing != nil {
		return nil, apperror.ConflictMessage("User already exists with this username or email")
	}
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking existing user: %w", err)
	}

	if in.Avatar == nil {
		return nil, apperror.BadRequest("Avatar is required")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be at most 72 characters")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	avatar, err := s.assets.Upload(ctx, storage.FolderAvatars, *in.Avatar)
	if err != nil {
		s.logger.Error("avatar upload failed", slog.String("error", err.Error()))
		return nil, apperror.Internal("Avatar upload failed")
	}
	var coverURL string
	if in.CoverImage != nil {
		cover, err := s.assets.Upload(ctx, storage.FolderCovers, *in.CoverImage)
		if err != nil {
			s.logger.Error("cover image upload failed", slog.String("error", err.Error()))
			removeAsset(ctx, s.assets, s.logger, avatar.URL)
			return nil, apperror.Internal("Cover image upload failed")
		}
		coverURL = cover.URL
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     strings.TrimSpace(in.FullName),
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		removeAsset(ctx, s.assets, s.logger, avatar.URL)
		removeAsset(ctx, s.assets, s.logger, coverURL)
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", user.Username))
	return user, nil
}

// Login checks the credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (_ *LoginResult, err error) {
	defer func() { metrics.RecordAuth("login", err) }()

	if blank(in.Username) && blank(in.Email) {
		return nil, apperror.BadRequest("Email or username is required")
	}
	if in.Password == "" {
		return nil, apperror.BadRequest("Password is required")
	}

	user, err := s.users.FindUserByLogin(ctx, in.Username, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: finding user: %w", err)
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, apperror.Unauthorized("Invalid password")
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	pair, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	user.RefreshToken = pair.RefreshToken

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &LoginResult{User: user, Tokens: pair}, nil
}

// IssueTokenPair signs a new access/refresh pair and stores the refresh
// token, replacing whatever was stored before.
func (s *AuthService) IssueTokenPair(ctx context.Context, user *model.User) (TokenPair, error) {
	access, err := s.tokens.GenerateAccess(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: generating access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: generating refresh token: %w", err)
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: storing refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ResolveAccessToken verifies token and loads the user it names. It
// implements auth.IdentityResolver.
func (s *AuthService) ResolveAccessToken(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.ValidateAccess(token)
	if err != nil {
		return nil, apperror.Unauthorized(err.Error())
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("Invalid Access Token")
		}
		return nil, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}
	return user, nil
}

// RotateRefreshToken exchanges a valid, current refresh token for a new
// pair. Replaying a token that was already rotated fails.
func (s *AuthService) RotateRefreshToken(ctx context.Context, presented string) (_ TokenPair, err error) {
	defer func() { metrics.RecordAuth("refresh", err) }()

	if presented == "" {
		return TokenPair{}, apperror.Unauthorized("Refresh token is required")
	}
	userID, err := s.tokens.ValidateRefresh(presented)
	if err != nil {
		return TokenPair{}, apperror.Unauthorized("Invalid refresh token")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return TokenPair{}, apperror.Unauthorized("Invalid refresh token")
		}
		return TokenPair{}, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}

	access, err := s.tokens.GenerateAccess(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: generating access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: generating refresh token: %w", err)
	}

	swapped, err := s.users.SwapRefreshToken(ctx, user.ID, presented, refresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: rotating refresh token: %w", err)
	}
	if !swapped {
		s.logger.Warn("stale refresh token presented", slog.String("userID", user.ID))
		return TokenPair{}, apperror.Unauthorized("Refresh token is expired or used")
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Revoke clears the stored refresh token. Calling it twice is harmless.
func (s *AuthService) Revoke(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("service/auth: revoking refresh token: %w", err)
	}
	s.logger.Info("user logged out", slog.String("userID", userID))
	return nil
}
