package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/videotube/internal/auth"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/response"
	"github.com/sakif/videotube/internal/service"
)

// CookieConfig controls the token cookies set on login and refresh.
type CookieConfig struct {
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler manages registration and the session lifecycle.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister     → multipart sign-up with avatar and optional cover image
//   - HandleLogin        → verify credentials, set the token cookies
//   - HandleLogout       → clear the stored refresh token and both cookies
//   - HandleRefreshToken → rotate the token pair
//
// Both tokens travel as HttpOnly cookies and are also returned in the body
// for clients that cannot use cookies.
type AuthHandler struct {
	auth    *service.AuthService
	cookies CookieConfig
	logger  *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, cookies: cookies, logger: logger}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/v1/users/register (multipart/form-data)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	defer f.close()

	in := service.RegisterInput{
		Username: f.value("username"),
		Email:    f.value("email"),
		FullName: f.value("fullName"),
		Password: f.value("password"),
	}
	if in.Avatar, err = f.file("avatar"); err != nil {
		response.Error(w, r, err)
		return
	}
	if in.CoverImage, err = f.file("coverImage"); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusCreated, user, "User registered successfully")
}

type loginResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// HandleLogin signs a user in by username or email.
//
// HTTP: POST /api/v1/users/login
// REQUEST BODY: {"username": "alice", "password": "..."} or {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(r, &in, false); err != nil {
		response.Error(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	h.setTokenCookies(w, res.Tokens)
	response.JSON(w, r, http.StatusOK, loginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User has successfully logged in")
}

// HandleLogout clears the session.
//
// HTTP: POST /api/v1/users/logout (protected)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.auth.Revoke(r.Context(), user.ID); err != nil {
		response.Error(w, r, err)
		return
	}

	h.clearTokenCookies(w)
	response.JSON(w, r, http.StatusOK, response.Empty, "User has successfully logged out")
}

// HandleRefreshToken swaps a refresh token for a new token pair. The token is
// read from the refreshToken cookie, or from the JSON body when the cookie is
// absent.
//
// HTTP: POST /api/v1/users/refresh-token
func (h *AuthHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var presented string
	if c, err := r.Cookie(auth.RefreshCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeJSON(r, &body, true); err != nil {
			response.Error(w, r, err)
			return
		}
		presented = body.RefreshToken
	}

	tokens, err := h.auth.RotateRefreshToken(r.Context(), presented)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	h.setTokenCookies(w, tokens)
	response.JSON(w, r, http.StatusOK, tokens, "Access token refreshed successfully")
}

func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, tokens service.TokenPair) {
	http.SetCookie(w, h.cookie(auth.AccessCookie, tokens.AccessToken, h.cookies.AccessTTL))
	http.SetCookie(w, h.cookie(auth.RefreshCookie, tokens.RefreshToken, h.cookies.RefreshTTL))
}

func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(auth.AccessCookie, "", -1))
	http.SetCookie(w, h.cookie(auth.RefreshCookie, "", -1))
}

// cookie builds an HttpOnly token cookie. A negative ttl deletes it.
func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	}
	switch {
	case ttl < 0:
		c.MaxAge = -1
	case ttl > 0:
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}
