// Package media defines the domain model shared by the session resolver,
// stream selector, and download jobs: resolved sessions, stream descriptors,
// and the typed failure taxonomy returned across the extraction boundary.
package media

import "errors"

// Kind distinguishes the three classes of downloadable streams.
type Kind string

const (
	// KindProgressive is a single stream carrying both video and audio.
	KindProgressive Kind = "progressive"
	// KindAdaptiveVideo is a video-only stream that needs a separate audio track.
	KindAdaptiveVideo Kind = "adaptive_video"
	// KindAudioOnly is an audio-only stream.
	KindAudioOnly Kind = "audio_only"
)

// AudioResolution is the sentinel resolution label for audio-only streams.
const AudioResolution = "audio"

// StreamDescriptor is an immutable snapshot of one selectable quality/format
// variant. Multiple descriptors may share a Resolution across different kinds.
type StreamDescriptor struct {
	// FormatID is the extractor's opaque identifier for this variant.
	FormatID string
	// Resolution is a label like "1080p", or AudioResolution for audio streams.
	Resolution string
	Kind       Kind
	// Container is the file extension the extractor will produce (e.g. "mp4").
	Container string
	// Size is the byte size when the extractor reports one, else 0.
	Size int64
	// Bitrate is the audio bitrate in kbps. Only meaningful for audio streams.
	Bitrate float64
}

// Session is a resolved handle to a remote video's metadata and stream
// catalog. It is owned exclusively by the request or job that created it.
type Session struct {
	URL string
	// Profile is the identity tag of the strategy profile that produced this
	// session. Stream fetches reuse it so format IDs stay consistent.
	Profile string

	Title           string
	Author          string
	DurationSeconds int64
	ThumbnailURL    string
	Views           int64
	Description     string

	Streams []StreamDescriptor
}

// HasProgressive reports whether at least one progressive stream resolved.
func (s *Session) HasProgressive() bool {
	for _, d := range s.Streams {
		if d.Kind == KindProgressive {
			return true
		}
	}
	return false
}

// resolutionRank orders resolution labels for "highest" comparisons.
// Ordering is by this fixed table, never lexical.
var resolutionRank = map[string]int{
	"2160p": 8,
	"1440p": 7,
	"1080p": 6,
	"720p":  5,
	"480p":  4,
	"360p":  3,
	"240p":  2,
	"144p":  1,
}

// ResolutionRank returns the rank of a resolution label. Unknown labels rank
// below every known one.
func ResolutionRank(label string) int {
	return resolutionRank[label]
}

// hdTokens are the requested resolutions that use the adaptive+mux path when
// a muxing tool is available.
var hdTokens = map[string]bool{
	"1080p": true,
	"720p":  true,
}

// IsHDToken reports whether token selects the adaptive video + audio pairing.
func IsHDToken(token string) bool {
	return hdTokens[token]
}

var (
	// ErrInvalidInput marks a malformed or unrecognized URL/resolution.
	ErrInvalidInput = errors.New("invalid input")
	// ErrResolutionExhausted means every strategy profile failed to produce a
	// usable session.
	ErrResolutionExhausted = errors.New("all connection strategies failed")
	// ErrStreamNotFound means the requested quality has no matching stream.
	ErrStreamNotFound = errors.New("stream not found")
	// ErrNoQualityAvailable means the fallback ladder was fully exhausted.
	ErrNoQualityAvailable = errors.New("no downloadable quality available")
)
