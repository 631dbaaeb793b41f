package api

import (
	"context"
	"net/http"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// SessionMiddleware resolves the caller's session id from the
// X-Session-ID header or the sessionId query parameter and stores it
// on the request context. Sessions are anonymous client-generated ids,
// so a missing one is not an error.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get("X-Session-ID")
		if sessionID == "" {
			sessionID = r.URL.Query().Get("sessionId")
		}

		if sessionID != "" {
			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

// SessionFromContext returns the session id resolved by
// SessionMiddleware, or "" when the request carried none.
func SessionFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}
