package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagePerPage(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantPage    int
		wantPerPage int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "?page=3&per_page=50", 3, 50},
		{"clamped to max", "?per_page=500", 1, 100},
		{"negative page", "?page=-2", 1, 20},
		{"zero per_page", "?per_page=0", 1, 1},
		{"garbage ignored", "?page=abc&per_page=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/submissions"+tt.query, nil)
			page, perPage := ParsePagePerPage(r, 20, 100)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPerPage, perPage)
		})
	}
}

func TestParsePagePerPage_DegenerateMax(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/submissions?per_page=5", nil)
	page, perPage := ParsePagePerPage(r, 20, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, perPage)
}
