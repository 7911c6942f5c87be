// Package ytdlpx adapts the yt-dlp subprocess client to the extraction
// boundary the resolver and download jobs consume. It maps strategy profiles
// onto extractor client identities and wraps failures with a typed
// classification.
package ytdlpx

import (
	"context"
	"fmt"
	"log/slog"

	"reeldrop.app/reeldrop/internal/media"
	"reeldrop.app/reeldrop/internal/resolver"
	"reeldrop.app/reeldrop/pkg/ytdlp"
)

// Extractor is a yt-dlp-backed implementation of resolver.Extractor. A fresh
// client is built per call so sessions never share cookie or argument state.
type Extractor struct {
	path    string
	cookies string

	profiles map[string]resolver.Profile
	fallback resolver.Profile

	// newClient is swappable in tests.
	newClient func(p resolver.Profile) *ytdlp.Client
}

// New builds an Extractor for the given yt-dlp binary path, optional cookies
// content, and the strategy catalog whose profiles it must be able to replay.
func New(path string, cookies string, catalog []resolver.Profile) *Extractor {
	e := &Extractor{
		path:     path,
		cookies:  cookies,
		profiles: make(map[string]resolver.Profile, len(catalog)),
	}
	for i, p := range catalog {
		if i == 0 {
			e.fallback = p
		}
		e.profiles[p.Identity] = p
	}
	e.newClient = e.buildClient
	return e
}

func (e *Extractor) buildClient(p resolver.Profile) *ytdlp.Client {
	c := ytdlp.New()
	c.Path = e.path
	if p.PlayerClient != "" {
		c.ExtraArgs = []string{"--extractor-args", "youtube:player_client=" + p.PlayerClient}
	}
	if p.UsesToken && e.cookies != "" {
		c.Cookies = e.cookies
	}
	c.LogCallback = func(stream, line string) {
		slog.Debug("ytdlp", "profile", p.Identity, "stream", stream, "line", line)
	}
	return c
}

// Probe constructs a session through the given profile. The returned session
// records the profile identity so later fetches replay the same client
// identity (format IDs differ between identities).
func (e *Extractor) Probe(ctx context.Context, url string, profile resolver.Profile) (*media.Session, error) {
	info, err := e.newClient(profile).GetInfo(ctx, url, "--no-playlist")
	if err != nil {
		return nil, wrapFailure(err)
	}

	sess := &media.Session{
		URL:             url,
		Profile:         profile.Identity,
		Title:           info.Title,
		Author:          author(info),
		DurationSeconds: int64(info.Duration),
		ThumbnailURL:    info.Thumbnail,
		Views:           info.ViewCount,
		Description:     info.Description,
		Streams:         mapFormats(info.Formats),
	}
	return sess, nil
}

// Fetch downloads one descriptor to destPath using the session's client
// identity.
func (e *Extractor) Fetch(ctx context.Context, sess *media.Session, desc media.StreamDescriptor, destPath string) error {
	profile, ok := e.profiles[sess.Profile]
	if !ok {
		profile = e.fallback
	}

	err := e.newClient(profile).DownloadFormat(ctx, sess.URL, desc.FormatID, destPath)
	if err != nil {
		return wrapFailure(err)
	}
	return nil
}

func author(info *ytdlp.Info) string {
	if info.Uploader != "" {
		return info.Uploader
	}
	return info.Channel
}

// mapFormats converts the extractor's format table into stream descriptors.
// Storyboard/preview pseudo-formats (no audio, no video) are dropped.
func mapFormats(formats []ytdlp.Format) []media.StreamDescriptor {
	out := make([]media.StreamDescriptor, 0, len(formats))
	for _, f := range formats {
		hasVideo, hasAudio := f.HasVideo(), f.HasAudio()
		if !hasVideo && !hasAudio {
			continue
		}

		d := media.StreamDescriptor{
			FormatID:  f.FormatID,
			Container: f.Ext,
			Size:      f.Size(),
		}
		switch {
		case hasVideo && hasAudio:
			d.Kind = media.KindProgressive
			d.Resolution = resolutionLabel(f.Height)
		case hasVideo:
			d.Kind = media.KindAdaptiveVideo
			d.Resolution = resolutionLabel(f.Height)
		default:
			d.Kind = media.KindAudioOnly
			d.Resolution = media.AudioResolution
			d.Bitrate = f.ABR
		}
		if d.Resolution == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

func resolutionLabel(height int) string {
	if height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dp", height)
}
