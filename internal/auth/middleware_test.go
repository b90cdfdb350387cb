package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sakif/videotube/internal/model"
)

// fakeResolver accepts exactly one token.
type fakeResolver struct {
	token string
	user  *model.User
	err   error
	calls int
}

func (f *fakeResolver) ResolveAccessToken(_ context.Context, token string) (*model.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if token != f.token {
		return nil, ErrTokenInvalid
	}
	return f.user, nil
}

// echoUser writes the authenticated user's id so tests can see what the
// handler received.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no user", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(id))
})

func TestRequireAuth(t *testing.T) {
	resolver := &fakeResolver{token: "good", user: alice}
	handler := RequireAuth(resolver)(echoUser)

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "good"})
		}, http.StatusOK},
		{"bearer header", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer good")
		}, http.StatusOK},
		{"lowercase scheme", func(r *http.Request) {
			r.Header.Set("Authorization", "bearer good")
		}, http.StatusOK},
		{"cookie wins over header", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "good"})
			r.Header.Set("Authorization", "Bearer bad")
		}, http.StatusOK},
		{"basic scheme", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic good")
		}, http.StatusUnauthorized},
		{"bad token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer bad")
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus == http.StatusOK && rr.Body.String() != alice.ID {
				t.Errorf("handler saw user %q, want %q", rr.Body.String(), alice.ID)
			}
			if tt.wantStatus == http.StatusUnauthorized && !strings.Contains(rr.Body.String(), UnauthorizedMessage) {
				t.Errorf("body %s should carry %q", rr.Body.String(), UnauthorizedMessage)
			}
		})
	}
}

func TestRequireAuth_ResolverErrorIsUniform401(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("store down")}
	handler := RequireAuth(resolver)(echoUser)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "store down") {
		t.Error("resolver error must not leak to the client")
	}
}

func TestUserFromContext_Anonymous(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("UserFromContext() on an empty context should report false")
	}
}
