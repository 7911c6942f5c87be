package media

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies a failure from the extraction boundary into the
// small set of remediation categories the rest of the system branches on.
type FailureKind int

const (
	// FailureGeneric is any failure without a more specific signature.
	FailureGeneric FailureKind = iota
	// FailureBlocked indicates a rate-limit/bot-blocking signal (403/429 class).
	FailureBlocked
	// FailureNotFound indicates the video is unavailable, private, or removed.
	FailureNotFound
	// FailureTransient indicates a network or parse hiccup worth retrying.
	FailureTransient
)

func (k FailureKind) String() string {
	switch k {
	case FailureBlocked:
		return "blocked"
	case FailureNotFound:
		return "not_found"
	case FailureTransient:
		return "transient"
	default:
		return "generic"
	}
}

// Failure is a typed classification wrapped around an extraction error.
// Adapters at the collaborator boundary produce it; everything above checks
// KindOf instead of matching on error text.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf extracts the failure kind from an error chain. Errors that carry no
// classification are generic.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	return FailureGeneric
}

// IsBlocked reports whether err carries a rate-limit/blocking signature.
func IsBlocked(err error) bool {
	return KindOf(err) == FailureBlocked
}

// Remediation maps an error to a user-actionable message. Raw internal error
// text is never surfaced to clients.
func Remediation(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "That doesn't look like a supported video URL. Check the address and try again."
	case errors.Is(err, ErrResolutionExhausted):
		return "The source rejected every connection attempt. Wait a few minutes, then retry or try a different video."
	case errors.Is(err, ErrStreamNotFound):
		return "The requested quality isn't available for this video. Pick a different quality."
	case errors.Is(err, ErrNoQualityAvailable):
		return "No downloadable quality could be retrieved for this video."
	}

	switch KindOf(err) {
	case FailureBlocked:
		return "The source is rate-limiting or blocking downloads right now. Wait a few minutes and try again."
	case FailureNotFound:
		return "This video is unavailable or was removed. Check the URL."
	case FailureTransient:
		return "A temporary network error occurred. Try again."
	default:
		return "The download failed. Try again, or pick a different quality."
	}
}
