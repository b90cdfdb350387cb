package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/logging"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/response"
)

// Cookie names shared with the account handlers.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// UnauthorizedMessage is the one message every guard rejection carries.
// Clients cannot tell a missing token from an expired one or a deleted user.
const UnauthorizedMessage = "Unauthorized request"

// IdentityResolver turns an access token into the user it belongs to.
// The account service implements it: verify the token, then load the user.
type IdentityResolver interface {
	ResolveAccessToken(ctx context.Context, token string) (*model.User, error)
}

// contextKey is unexported so no other package can read or overwrite the
// authenticated user.
type contextKey string

const userKey contextKey = "user"

// RequireAuth rejects requests without a valid access token and stores the
// resolved user on the context for the handlers.
//
// The token is read from the accessToken cookie first, then from the
// Authorization header. The reason a token was rejected goes to the debug
// log only.
func RequireAuth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				logging.FromContext(r.Context()).Debug("auth: no access token presented")
				response.Error(w, r, apperror.Unauthorized(UnauthorizedMessage))
				return
			}

			user, err := resolver.ResolveAccessToken(r.Context(), token)
			if err != nil || user == nil {
				logging.FromContext(r.Context()).Debug("auth: access token rejected", slog.Any("error", err))
				response.Error(w, r, apperror.Unauthorized(UnauthorizedMessage))
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With(slog.String("user_id", user.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest returns the access token from the accessToken cookie or,
// failing that, from an "Authorization: Bearer" header. The scheme is
// matched case-insensitively. It returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated user, or (nil, false) outside
// RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// UserIDFromContext returns the authenticated user's id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}
