package middleware

import (
	"context"
	"net/http"

	"github.com/echo-social/echo-backend/internal/auth"
	"github.com/echo-social/echo-backend/internal/http/respond"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "token"

type contextKey string

const userIDKey = contextKey("user_id")

// Auth verifies the session cookie and attaches the subject user ID to the
// request context. The identity is always passed on explicitly; handlers read
// it back with UserID.
func Auth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				respond.Error(w, http.StatusUnauthorized, "Authentication required.")
				return
			}

			userID, err := tokens.Verify(cookie.Value)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "Invalid or expired session.")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user ID placed by Auth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}
