package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/service"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionFromContext returns the live session bound by RequireSession.
func SessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionKey).(*model.Session)
	return session
}

// RequireSession validates the bearer session credential and binds the live
// session to the request context. Inactive or unknown sessions get 401.
func RequireSession(auth *service.AuthService, sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
				return
			}
			claims, err := auth.ValidateToken(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			session := sessions.Get(r.Context(), claims.SessionID)
			if session == nil {
				http.Error(w, `{"error":"session not found or inactive"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, session)))
		})
	}
}

// RequireAdmin gates the admin surface behind a shared key presented in the
// X-Admin-Key header.
func RequireAdmin(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" || r.Header.Get("X-Admin-Key") != adminKey {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
