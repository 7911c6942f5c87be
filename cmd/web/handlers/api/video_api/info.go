// package video_api provides the video inspection API handler.
package video_api

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"reeldrop.app/reeldrop/cmd/web/handlers/common"
	"reeldrop.app/reeldrop/internal/media"
	"reeldrop.app/reeldrop/pkg/utils/format"
)

// SessionResolver inspects a source URL and returns its stream inventory.
type SessionResolver interface {
	Resolve(ctx context.Context, rawURL string) (*media.Session, error)
}

type streamView struct {
	FormatID   string `json:"format_id"`
	Resolution string `json:"resolution"`
	Type       string `json:"type"`
	Quality    string `json:"quality"`
	Container  string `json:"container,omitempty"`
	Size       string `json:"size,omitempty"`
}

type videoInfoView struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Length      int64  `json:"length"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Views       int64  `json:"views"`
	Description string `json:"description,omitempty"`
}

type infoView struct {
	VideoInfo videoInfoView `json:"video_info"`
	Streams   []streamView  `json:"streams"`
	// FfmpegAvailable tells the UI whether HD (adaptive+mux) options are real.
	FfmpegAvailable bool `json:"ffmpeg_available"`
}

func HandleInfo(resolver SessionResolver, muxAvailable func() bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			URL string `json:"url"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(400, map[string]string{"error": "invalid json"})
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			return c.JSON(400, map[string]string{"error": "url is required"})
		}

		sess, err := resolver.Resolve(c.Request().Context(), req.URL)
		if err != nil {
			slog.Warn("video inspection failed", "error", err)
			return common.ErrorJSON(c, err)
		}

		return c.JSON(200, buildInfoView(sess, muxAvailable()))
	}
}

func buildInfoView(sess *media.Session, muxAvailable bool) infoView {
	view := infoView{
		VideoInfo: videoInfoView{
			Title:       sess.Title,
			Author:      sess.Author,
			Length:      sess.DurationSeconds,
			Thumbnail:   sess.ThumbnailURL,
			Views:       sess.Views,
			Description: format.Truncate(sess.Description, 200),
		},
		Streams:         make([]streamView, 0, len(sess.Streams)),
		FfmpegAvailable: muxAvailable,
	}

	for _, d := range selectQualities(sess.Streams, muxAvailable) {
		sv := streamView{
			FormatID:   d.FormatID,
			Resolution: d.Resolution,
			Type:       string(d.Kind),
			Container:  d.Container,
		}
		if d.Size > 0 {
			sv.Size = format.Bytes(d.Size)
		}
		switch d.Kind {
		case media.KindAudioOnly:
			sv.Quality = "Audio only"
		case media.KindAdaptiveVideo:
			sv.Quality = d.Resolution + " HD"
		default:
			sv.Quality = d.Resolution
		}
		view.Streams = append(view.Streams, sv)
	}
	return view
}

// selectQualities keeps one descriptor per selectable resolution, best rank
// first, with the single audio entry last. A progressive stream covers its
// resolution outright; adaptive streams only fill in resolutions that have no
// progressive counterpart, and only when muxing is available to deliver them.
func selectQualities(streams []media.StreamDescriptor, muxAvailable bool) []media.StreamDescriptor {
	progressive := make(map[string]bool, len(streams))
	var out []media.StreamDescriptor
	var audio *media.StreamDescriptor
	for i := range streams {
		d := streams[i]
		switch d.Kind {
		case media.KindAudioOnly:
			if audio == nil || d.Bitrate > audio.Bitrate {
				audio = &streams[i]
			}
		case media.KindProgressive:
			if !progressive[d.Resolution] {
				progressive[d.Resolution] = true
				out = append(out, d)
			}
		}
	}

	if muxAvailable {
		adaptive := make(map[string]bool)
		for _, d := range streams {
			if d.Kind != media.KindAdaptiveVideo || progressive[d.Resolution] || adaptive[d.Resolution] {
				continue
			}
			adaptive[d.Resolution] = true
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return media.ResolutionRank(out[i].Resolution) > media.ResolutionRank(out[j].Resolution)
	})

	if audio != nil {
		out = append(out, *audio)
	}
	return out
}
