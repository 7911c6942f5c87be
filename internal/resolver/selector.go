package resolver

import (
	"fmt"

	"reeldrop.app/reeldrop/internal/media"
)

// Selection is the outcome of picking streams for a requested quality token.
// Exactly one of the three shapes is populated:
//   - audio:       Stream is the audio-only descriptor
//   - muxed pair:  Video and Audio are the adaptive descriptors to combine
//   - progressive: Stream is the progressive descriptor; Exact records
//     whether it matches the requested resolution or is a documented
//     degradation to the best available one
type Selection struct {
	Token string

	Video  *media.StreamDescriptor
	Audio  *media.StreamDescriptor
	Stream *media.StreamDescriptor
	Exact  bool
}

// Muxed reports whether the selection is an adaptive video+audio pair.
func (s *Selection) Muxed() bool { return s.Video != nil && s.Audio != nil }

// Select picks the stream(s) for a quality token.
//
// Rules, in order:
//   - "audio" picks the highest-bitrate audio-only descriptor (first
//     enumerated wins ties).
//   - An HD token with a muxing tool available picks an adaptive video
//     descriptor at exactly that resolution plus the best audio descriptor;
//     both must exist.
//   - Anything else picks the progressive descriptor matching the token, or
//     degrades to the highest-ranked progressive descriptor available.
func Select(sess *media.Session, token string, muxAvailable bool) (*Selection, error) {
	if token == media.AudioResolution {
		audio := bestAudio(sess)
		if audio == nil {
			return nil, fmt.Errorf("%w: no audio-only stream", media.ErrStreamNotFound)
		}
		return &Selection{Token: token, Stream: audio, Exact: true}, nil
	}

	if media.IsHDToken(token) && muxAvailable {
		video := adaptiveVideoAt(sess, token)
		audio := bestAudio(sess)
		if video == nil || audio == nil {
			return nil, fmt.Errorf("%w: no adaptive %s pair", media.ErrStreamNotFound, token)
		}
		return &Selection{Token: token, Video: video, Audio: audio, Exact: true}, nil
	}

	return selectProgressive(sess, token)
}

// selectProgressive matches the token exactly, else degrades to the highest
// progressive resolution available. Degradation is documented behavior, not
// an error; only a session with zero progressive streams fails.
func selectProgressive(sess *media.Session, token string) (*Selection, error) {
	if exact := ProgressiveAt(sess, token); exact != nil {
		return &Selection{Token: token, Stream: exact, Exact: true}, nil
	}
	if best := BestProgressive(sess); best != nil {
		return &Selection{Token: token, Stream: best, Exact: false}, nil
	}
	return nil, fmt.Errorf("%w: no progressive stream", media.ErrStreamNotFound)
}

func bestAudio(sess *media.Session) *media.StreamDescriptor {
	var best *media.StreamDescriptor
	for i := range sess.Streams {
		d := &sess.Streams[i]
		if d.Kind != media.KindAudioOnly {
			continue
		}
		// Strictly-greater comparison keeps the first enumerated on ties.
		if best == nil || d.Bitrate > best.Bitrate {
			best = d
		}
	}
	return best
}

func adaptiveVideoAt(sess *media.Session, resolution string) *media.StreamDescriptor {
	for i := range sess.Streams {
		d := &sess.Streams[i]
		if d.Kind == media.KindAdaptiveVideo && d.Resolution == resolution {
			return d
		}
	}
	return nil
}

// ProgressiveAt returns the progressive descriptor at exactly the given
// resolution, or nil.
func ProgressiveAt(sess *media.Session, resolution string) *media.StreamDescriptor {
	for i := range sess.Streams {
		d := &sess.Streams[i]
		if d.Kind == media.KindProgressive && d.Resolution == resolution {
			return d
		}
	}
	return nil
}

// BestProgressive returns the highest-ranked progressive descriptor in the
// session, or nil when none exists.
func BestProgressive(sess *media.Session) *media.StreamDescriptor {
	var best *media.StreamDescriptor
	for i := range sess.Streams {
		d := &sess.Streams[i]
		if d.Kind != media.KindProgressive {
			continue
		}
		if best == nil || media.ResolutionRank(d.Resolution) > media.ResolutionRank(best.Resolution) {
			best = d
		}
	}
	return best
}
