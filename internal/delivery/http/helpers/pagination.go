package helpers

import (
	"net/http"
	"strconv"

	"eventparticipation/internal/domain"
)

// Pagination query parameter defaults and limits.
const (
	DefaultSize = 10
	MaxSize     = 100
)

// ParsePagination reads from and size from the request query string, clamps them to
// valid ranges, and returns domain.PaginationParams. Invalid or missing values fall back
// to defaults.
func ParsePagination(r *http.Request) domain.PaginationParams {
	from := 0
	if s := r.URL.Query().Get("from"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			from = v
		}
	}
	size := DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			size = min(v, MaxSize)
		}
	}
	return domain.PaginationParams{From: from, Size: size}
}
