// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/studymate/studymate/internal/session"
)

type ctxKey string

const userKey ctxKey = "user"

// LoginPath is where anonymous visitors of protected pages are sent.
const LoginPath = "/login"

// HomePath is where logged-in visitors of guest-only pages are sent.
const HomePath = "/dashboard"

// RequireLogin stops requests without a logged-in session with a redirect to
// LoginPath; the wrapped handler never runs for them.
//
// For authenticated requests the user id is stored in the request context,
// so it can be read downstream with GetUserIDFromContext.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		if !s.IsLoggedIn() {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, s.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RedirectIfAuthenticated sends logged-in visitors to HomePath.
func RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).IsLoggedIn() {
			http.Redirect(w, r, HomePath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserIDFromContext extracts the user ID stored by RequireLogin.
// Returns 0 if not found.
func GetUserIDFromContext(ctx context.Context) int64 {
	val := ctx.Value(userKey)
	if id, ok := val.(int64); ok {
		return id
	}
	return 0
}

// WithUserID returns a copy of ctx carrying userID; handler tests use it to
// skip the session layer.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey, userID)
}
