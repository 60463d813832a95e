package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	ownerIDKey   contextKey = "owner_id"
)

// ownerHeader carries the authenticated principal. Auth proper happens
// upstream (or via the shared API key); the value is opaque here and
// only its shape is checked.
const ownerHeader = "X-Owner-ID"

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if s.cfg.APIKey != "" {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeUnauthorizedError(w, "missing authorization header")
				return
			}
			token := strings.TrimPrefix(auth, "Bearer ")
			if token == auth || token != s.cfg.APIKey {
				writeUnauthorizedError(w, "invalid api key")
				return
			}
		}

		owner := r.Header.Get(ownerHeader)
		if err := ValidateOwnerID(owner); err != nil {
			writeUnauthorizedError(w, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ownerIDKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerID returns the authenticated principal stored by the middleware.
func ownerID(r *http.Request) string {
	if v, ok := r.Context().Value(ownerIDKey).(string); ok {
		return v
	}
	return ""
}
