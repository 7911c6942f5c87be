package ytdlpx

import (
	"errors"
	"strings"

	"reeldrop.app/reeldrop/internal/media"
	"reeldrop.app/reeldrop/pkg/ytdlp"
)

// yt-dlp offers no structured error codes over its CLI boundary, so
// classification falls back to substring matching on its output. This file is
// the only place such matching is allowed; everything above the boundary
// works with media.FailureKind.

var blockedMarkers = []string{
	"http error 403",
	"http error 429",
	"403: forbidden",
	"forbidden",
	"too many requests",
	"sign in to confirm",
	"confirm you're not a bot",
	"rate-limit",
	"rate limited",
	"blocked",
}

var notFoundMarkers = []string{
	"http error 404",
	"video unavailable",
	"private video",
	"has been removed",
	"no longer available",
	"account associated with this video has been terminated",
	"not available in your country",
	"does not exist",
}

var transientMarkers = []string{
	"timed out",
	"timeout",
	"eof",
	"connection reset",
	"connection refused",
	"temporary failure",
	"unable to download webpage",
	"incomplete read",
	"parse json",
	"unable to extract",
}

// classify derives a failure kind from a yt-dlp error. The full stderr is
// inspected, not just the wrapping message, since yt-dlp reports the
// interesting part ("ERROR: ... HTTP Error 403") on stderr.
func classify(err error) media.FailureKind {
	if err == nil {
		return media.FailureGeneric
	}

	text := strings.ToLower(err.Error())
	var ee *ytdlp.ExecError
	if errors.As(err, &ee) {
		text += "\n" + strings.ToLower(ee.Stderr) + "\n" + strings.ToLower(ee.Stdout)
	}

	for _, m := range blockedMarkers {
		if strings.Contains(text, m) {
			return media.FailureBlocked
		}
	}
	for _, m := range notFoundMarkers {
		if strings.Contains(text, m) {
			return media.FailureNotFound
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(text, m) {
			return media.FailureTransient
		}
	}
	return media.FailureGeneric
}

// wrapFailure attaches the classification to err.
func wrapFailure(err error) error {
	if err == nil {
		return nil
	}
	return &media.Failure{Kind: classify(err), Err: err}
}
