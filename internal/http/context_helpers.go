package httpx

import (
	"context"
	"net/http"

	apperrors "github.com/quillscore/quillscore-api/internal/errors"
)

// userIDKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type userIDKey struct{}

// SetUserIDInContext returns a child context that carries the caller's user id.
// If id is empty, the original ctx is returned unchanged.
func SetUserIDInContext(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, id)
}

// GetUserIDFromContext returns the caller's user id from context and a boolean
// indicating presence.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(userIDKey{}).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// requireUserID returns the caller id placed in context by the Identity
// middleware. Routes that reach here without one are misregistered; the
// caller still gets a clean 401 rather than a panic.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := GetUserIDFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.Unauthorized("authentication required"))
		return "", false
	}
	return id, true
}
