package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/videotube/internal/auth"
	"github.com/sakif/videotube/internal/config"
	"github.com/sakif/videotube/internal/repository/sqlite"
	"github.com/sakif/videotube/internal/server"
	"github.com/sakif/videotube/internal/storage/storagetest"
)

// envelope mirrors the response body of every endpoint.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			ShutdownTimeout: time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
			MaxJSONBytes:    1 << 20,
			MaxUploadBytes:  4 << 20,
		},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"},
		Auth: config.AuthConfig{
			AccessTokenSecret:  "server-test-access-secret",
			AccessTokenTTL:     time.Minute,
			RefreshTokenSecret: "server-test-refresh-secret",
			RefreshTokenTTL:    time.Hour,
			BcryptCost:         4,
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(cfg, server.Deps{
		Store:     db,
		Assets:    storagetest.New(),
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(cfg.Auth.BcryptCost),
	}, logger)
	require.NoError(t, err)
	return srv.Handler()
}

// client sends requests and carries cookies between them, like a browser.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)

	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func (c *client) json(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// multipart sends fields and files ("name" → contents) as multipart/form-data.
func (c *client) multipart(method, path string, fields, files map[string]string) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	for k, v := range files {
		fw, err := mw.CreateFormFile(k, k+".bin")
		require.NoError(c.t, err)
		_, err = fw.Write([]byte(v))
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// signUp registers and logs in username, returning the user id.
func (c *client) signUp(username string) string {
	c.t.Helper()
	rr, env := c.multipart(http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"fullName": "User " + username,
		"password": "secret-pass",
	}, map[string]string{"avatar": "png"})
	require.Equal(c.t, http.StatusCreated, rr.Code, rr.Body.String())

	var u struct {
		ID string `json:"_id"`
	}
	decodeData(c.t, env, &u)

	rr, _ = c.json(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": username,
		"password": "secret-pass",
	})
	require.Equal(c.t, http.StatusOK, rr.Code, rr.Body.String())
	return u.ID
}

// =========================================================================
// ACCOUNT FLOW
// =========================================================================

func TestRegisterLoginLogout(t *testing.T) {
	h := newTestServer(t, testConfig())
	c := newClient(t, h)

	rr, env := c.multipart(http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": "Alice",
		"email":    "alice@example.com",
		"fullName": "Alice",
		"password": "secret-pass",
	}, map[string]string{"avatar": "png"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "User registered successfully", env.Message)
	assert.NotContains(t, rr.Body.String(), "secret-pass")

	rr, env = c.json(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "alice@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, c.cookies, auth.AccessCookie)
	assert.Contains(t, c.cookies, auth.RefreshCookie)
	assert.True(t, c.cookies[auth.AccessCookie].HttpOnly)

	var login struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, env, &login)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)

	rr, env = c.json(http.MethodGet, "/api/v1/users/current-user", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var me struct {
		Username string `json:"username"`
	}
	decodeData(t, env, &me)
	assert.Equal(t, "alice", me.Username)

	rr, env = c.json(http.MethodPost, "/api/v1/users/refresh-token", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Access token refreshed successfully", env.Message)

	rr, _ = c.json(http.MethodPost, "/api/v1/users/logout", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotContains(t, c.cookies, auth.AccessCookie)

	rr, env = c.json(http.MethodGet, "/api/v1/users/current-user", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, env.Success)
	assert.NotNil(t, env.Errors)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestServer(t, testConfig())
	c := newClient(t, h)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/videos"},
		{http.MethodGet, "/api/v1/users/history"},
		{http.MethodPost, "/api/v1/tweets"},
		{http.MethodGet, "/api/v1/likes/videos"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rr, env := c.json(p.method, p.path, nil)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, auth.UnauthorizedMessage, env.Message)
		})
	}

	t.Run("bearer header accepted", func(t *testing.T) {
		other := newClient(t, h)
		other.signUp("bearer")
		token := other.cookies[auth.AccessCookie].Value

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr, _ := c.do(req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

// =========================================================================
// CONTENT FLOW
// =========================================================================

func TestVideoCommentLikeFlow(t *testing.T) {
	h := newTestServer(t, testConfig())
	alice := newClient(t, h)
	alice.signUp("alice")
	bob := newClient(t, h)
	bob.signUp("bob")

	rr, env := alice.multipart(http.MethodPost, "/api/v1/videos", map[string]string{
		"title":       "Intro",
		"description": "first upload",
		"duration":    "12.5",
	}, map[string]string{"videoFile": "mp4", "thumbnail": "png"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var video struct {
		ID    string `json:"_id"`
		Views int64  `json:"views"`
	}
	decodeData(t, env, &video)
	require.NotEmpty(t, video.ID)

	rr, env = bob.json(http.MethodGet, "/api/v1/videos/"+video.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeData(t, env, &video)
	assert.Equal(t, int64(1), video.Views)

	rr, env = bob.json(http.MethodGet, "/api/v1/videos?page=1&limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Videos     []json.RawMessage `json:"videos"`
		Pagination struct {
			TotalItems int64 `json:"totalItems"`
		} `json:"pagination"`
	}
	decodeData(t, env, &list)
	assert.Len(t, list.Videos, 1)
	assert.Equal(t, int64(1), list.Pagination.TotalItems)

	rr, env = bob.json(http.MethodPost, "/api/v1/comments/"+video.ID, map[string]string{"content": "nice"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var comment struct {
		ID string `json:"_id"`
	}
	decodeData(t, env, &comment)

	rr, env = alice.json(http.MethodPatch, "/api/v1/comments/c/"+comment.ID, map[string]string{"content": "mine"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "You are not authorized to update the comment", env.Message)

	rr, _ = bob.json(http.MethodPost, "/api/v1/comments/doesnotexist", map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, env = bob.json(http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Video liked Successfully", env.Message)

	rr, env = bob.json(http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Successfully unliked", env.Message)
	assert.JSONEq(t, `{}`, string(env.Data))

	rr, env = alice.json(http.MethodPatch, "/api/v1/videos/toggle/publish/"+video.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Video is now Unpublished", env.Message)

	rr, _ = bob.json(http.MethodGet, "/api/v1/videos/"+video.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr, _ = bob.json(http.MethodGet, "/api/v1/comments/"+video.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr, _ = bob.json(http.MethodPost, "/api/v1/comments/"+video.ID, map[string]string{"content": "still here?"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr, _ = bob.json(http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = alice.json(http.MethodGet, "/api/v1/comments/"+video.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code, "the owner still sees the comments")

	rr, _ = bob.json(http.MethodDelete, "/api/v1/videos/"+video.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, env = alice.json(http.MethodDelete, "/api/v1/videos/"+video.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Video deleted successfully", env.Message)
}

func TestSubscriptionAndChannelProfile(t *testing.T) {
	h := newTestServer(t, testConfig())
	alice := newClient(t, h)
	aliceID := alice.signUp("alice")
	bob := newClient(t, h)
	bob.signUp("bob")

	rr, env := alice.json(http.MethodPost, "/api/v1/subscriptions/c/"+aliceID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "You cannot subscribe to your own channel", env.Message)

	rr, env = bob.json(http.MethodPost, "/api/v1/subscriptions/c/"+aliceID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Successfully subscribed", env.Message)

	rr, env = bob.json(http.MethodGet, "/api/v1/users/c/alice", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var profile struct {
		SubscribersCount int64 `json:"subscribersCount"`
		IsSubscribed     bool  `json:"isSubscribed"`
	}
	decodeData(t, env, &profile)
	assert.Equal(t, int64(1), profile.SubscribersCount)
	assert.True(t, profile.IsSubscribed)
}

// =========================================================================
// LIMITS AND PLUMBING
// =========================================================================

func TestMalformedJSON(t *testing.T) {
	h := newTestServer(t, testConfig())
	c := newClient(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"username":`))
	req.Header.Set("Content-Type", "application/json")
	rr, env := c.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid JSON body", env.Message)
}

func TestOversizedJSONBody(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxJSONBytes = 64
	h := newTestServer(t, cfg)
	c := newClient(t, h)

	rr, _ := c.json(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": strings.Repeat("a", 200),
		"password": "pw",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestRateLimitedLogin(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}
	h := newTestServer(t, cfg)
	c := newClient(t, h)

	var last *httptest.ResponseRecorder
	var env envelope
	for i := 0; i < 3; i++ {
		last, env = c.json(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "x", "password": "y"})
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.False(t, env.Success)
}

func TestHealthcheckAndMetrics(t *testing.T) {
	h := newTestServer(t, testConfig())
	c := newClient(t, h)

	rr, env := c.json(http.MethodGet, "/api/v1/healthcheck", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", env.Message)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"), "request id should be echoed")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrr := httptest.NewRecorder()
	h.ServeHTTP(mrr, req)
	assert.Equal(t, http.StatusOK, mrr.Code)
	assert.Contains(t, mrr.Body.String(), "videotube_http_requests_total")
}
