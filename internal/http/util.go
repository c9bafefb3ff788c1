package httpx

import (
	"net/http"
	"strconv"
)

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// ParsePagePerPage parses page-based pagination params and clamps to sane bounds.
// - defPerPage: default page size when not specified
// - maxPerPage: maximum allowed page size (values > maxPerPage are clamped to maxPerPage).
func ParsePagePerPage(r *http.Request, defPerPage, maxPerPage int) (int, int) {
	// Defensive: ensure maxPerPage is at least 1 to avoid clamping to 0 or negatives
	if maxPerPage < 1 {
		maxPerPage = 1
	}

	page := parseIntQuery(r, "page", 1)
	perPage := parseIntQuery(r, "per_page", defPerPage)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
