package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeHealthChecker struct{ err error }

func (f fakeHealthChecker) Health(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	h := &HealthHandlers{DB: fakePinger{}, Cache: fakeHealthChecker{}}

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","redis":"ok"}}`, rec.Body.String())
}

func TestHealth_NoProbes(t *testing.T) {
	h := &HealthHandlers{}

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := &HealthHandlers{
		DB:    fakePinger{err: errors.New("connection refused")},
		Cache: fakeHealthChecker{},
	}

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"connection refused","redis":"ok"}}`, rec.Body.String())
}

func TestHealth_HEAD(t *testing.T) {
	h := &HealthHandlers{DB: fakePinger{}}

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	h.DB = fakePinger{err: errors.New("down")}
	h.Health(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
