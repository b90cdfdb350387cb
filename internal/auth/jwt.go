// Package auth issues and verifies the access/refresh token pair and guards
// protected routes.
//
// TOKEN LIFECYCLE OVERVIEW:
//  1. Login issues a short-lived access token and a long-lived refresh token.
//     The refresh token is also stored on the user record (one slot per user).
//  2. Every protected request presents the access token, either as the
//     "accessToken" cookie or as "Authorization: Bearer <token>".
//  3. When the access token expires, the client posts its refresh token to
//     /users/refresh-token. The server checks it against the stored slot,
//     issues a new pair and overwrites the slot. Presenting the old refresh
//     token again fails, because the slot no longer holds it.
//  4. Logout clears the slot.
//
// The two kinds are signed with different secrets and carry different
// audiences, so a refresh token can never be replayed as an access token.
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:  {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user id>","aud":["access"],"jti":"...","exp":...,"iat":...,"iss":"videotube"}
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/videotube/internal/model"
)

const minSecretLength = 16

// Audiences for the two token kinds.
const (
	AccessAudience  = "access"
	RefreshAudience = "refresh"
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid covers everything else: bad signature, wrong audience,
	// wrong issuer, missing subject, garbage input.
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenConfig configures a TokenService.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenService signs and verifies both token kinds.
type TokenService struct {
	access  signer
	refresh signer
	issuer  string

	// now is swapped in tests to mint tokens in the past.
	now func() time.Time
}

type signer struct {
	secret   []byte
	ttl      time.Duration
	audience string
}

// NewTokenService validates cfg and builds a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) < minSecretLength || len(cfg.RefreshSecret) < minSecretLength {
		return nil, fmt.Errorf("auth: token secrets must be at least %d characters", minSecretLength)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token TTLs must be positive")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "videotube"
	}

	return &TokenService{
		access:  signer{secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL, audience: AccessAudience},
		refresh: signer{secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL, audience: RefreshAudience},
		issuer:  issuer,
		now:     time.Now,
	}, nil
}

// AccessClaims is the access token payload. The profile fields are
// informational for clients; the server only trusts Subject and re-reads the
// user on every request.
type AccessClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccess signs an access token for u.
func (s *TokenService) GenerateAccess(u *model.User) (string, error) {
	c := AccessClaims{
		Username:         u.Username,
		Email:            u.Email,
		FullName:         u.FullName,
		RegisteredClaims: s.registered(s.access, u.ID),
	}
	return sign(s.access, c)
}

// GenerateRefresh signs a refresh token for userID.
func (s *TokenService) GenerateRefresh(userID string) (string, error) {
	return sign(s.refresh, s.registered(s.refresh, userID))
}

// ValidateAccess verifies an access token and returns its subject.
func (s *TokenService) ValidateAccess(token string) (string, error) {
	return s.validate(s.access, token, &AccessClaims{})
}

// ValidateRefresh verifies a refresh token and returns its subject.
func (s *TokenService) ValidateRefresh(token string) (string, error) {
	return s.validate(s.refresh, token, &jwt.RegisteredClaims{})
}

// The jti makes every issued token unique, even two minted for the same user
// within one second. Refresh rotation depends on that: the new token must
// never equal the one it replaces.
func (s *TokenService) registered(k signer, userID string) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        xid.New().String(),
		Subject:   userID,
		Audience:  jwt.ClaimStrings{k.audience},
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
	}
}

func sign(k signer, c jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// validate checks signature, algorithm, issuer, audience and expiry.
// Pinning HS256 with WithValidMethods blocks algorithm confusion ("alg":"none").
func (s *TokenService) validate(k signer, tokenStr string, c jwt.Claims) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(*jwt.Token) (any, error) { return k.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(k.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return sub, nil
}
