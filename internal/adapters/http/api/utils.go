package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// parseLimit reads the limit query parameter. A missing value yields 0 so the
// service default applies; values above max are clamped.
func parseLimit(r *http.Request, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", ErrBadRequest)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: limit must be at least 1", ErrBadRequest)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
