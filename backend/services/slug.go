package services

import "strings"

// GenerateSlug derives a URL-safe identifier from a title: lowercase,
// strip everything outside [a-z0-9 ], collapse whitespace runs to single
// hyphens. Deterministic and pure; uniqueness is the courses table's
// problem, and an empty result must be rejected by the caller with
// ErrInvalidSlug.
func GenerateSlug(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), "-")
}
