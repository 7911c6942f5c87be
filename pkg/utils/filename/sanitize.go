// Package filename provides utilities for sanitizing strings into safe filenames.
package filename

import (
	"regexp"
	"strings"
)

// allowedRe keeps alphanumerics, spaces, hyphens, and underscores. Everything
// else is dropped outright rather than replaced, so titles with heavy
// punctuation collapse cleanly.
var allowedRe = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

// Sanitize converts a video title into a filename-safe base name. Trailing
// whitespace left behind by stripped characters is trimmed. The output is
// truncated to maxLen bytes (0 defaults to 120). An empty result falls back
// to "video" so download paths are never blank.
func Sanitize(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 120
	}

	s := allowedRe.ReplaceAllString(name, "")
	s = strings.TrimRight(s, " ")
	s = strings.TrimLeft(s, " ")

	if len(s) > maxLen {
		s = s[:maxLen]
		s = strings.TrimRight(s, " ")
	}

	if s == "" {
		return "video"
	}
	return s
}
