package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDContextRoundTrip(t *testing.T) {
	// Absent
	if id, ok := GetUserIDFromContext(context.Background()); assert.False(t, ok) {
		assert.Empty(t, id)
	}

	// Present
	ctx := SetUserIDInContext(context.Background(), "user-1")
	id, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	// Empty ids are never stored
	ctx = SetUserIDInContext(context.Background(), "")
	_, ok = GetUserIDFromContext(ctx)
	assert.False(t, ok)
}

func TestRequireUserID(t *testing.T) {
	r := withUserID(httptest.NewRequest(http.MethodGet, "/api/submissions", nil), "user-1")
	w := httptest.NewRecorder()
	id, ok := requireUserID(w, r)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	r = httptest.NewRequest(http.MethodGet, "/api/submissions", nil)
	w = httptest.NewRecorder()
	_, ok = requireUserID(w, r)
	assert.False(t, ok)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Code)
}
