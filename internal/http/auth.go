package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"tenge/internal/core"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenVerifier checks a bearer token and returns the user id it was
// issued for.
type TokenVerifier interface {
	VerifyToken(token string) (int64, error)
}

// requireAuth wraps a handler with bearer-token authentication. The
// verified user id is placed on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, &core.Error{Status: http.StatusUnauthorized, Message: "Missing bearer token"})
			return
		}

		userID, err := s.verifier.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			slog.WarnContext(r.Context(), "Token verification failed",
				"error", err,
				"path", r.URL.Path)
			writeError(w, r, &core.Error{Status: http.StatusUnauthorized, Message: "Invalid or expired token"})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// authedUser returns the user id the auth middleware stored on the
// context. Zero means the handler was reached without authentication.
func authedUser(ctx context.Context) int64 {
	if id, ok := ctx.Value(userIDKey).(int64); ok {
		return id
	}
	return 0
}
