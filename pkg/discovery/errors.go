package discovery

import (
	"strings"

	"github.com/tidwall/gjson"
)

// maxErrorExcerpt bounds how much of a non-JSON error body is surfaced.
const maxErrorExcerpt = 200

// ExtractErrorMessage pulls a human-readable message out of a vendor error
// body. It tries the common envelope shapes in order (error.message, then
// message, then detail) and falls back to the first 200 characters of the
// body. Returns "" for an empty body.
func ExtractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	for _, path := range []string{"error.message", "message", "detail"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorExcerpt {
		s = s[:maxErrorExcerpt]
	}
	return s
}
