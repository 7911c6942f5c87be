package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"reeldrop.app/reeldrop/internal/media"
	"reeldrop.app/reeldrop/internal/resolver"
)

// stepMode says how a ladder candidate is acquired.
type stepMode int

const (
	stepMux stepMode = iota
	stepProgressive
)

type ladderStep struct {
	resolution string
	mode       stepMode
}

// ladderFor returns the descent candidates tried after an HD request is
// blocked, highest quality first.
func ladderFor(requested string) []ladderStep {
	if requested == "1080p" {
		return []ladderStep{
			{resolution: "720p", mode: stepMux},
			{resolution: "480p", mode: stepProgressive},
			{resolution: "360p", mode: stepProgressive},
		}
	}
	return []ladderStep{
		{resolution: "480p", mode: stepProgressive},
		{resolution: "360p", mode: stepProgressive},
	}
}

// acquireHD runs the HD mux path at the requested resolution and, when that
// is blocked, walks the fallback ladder. The achieved resolution carries the
// degradation annotation when a candidate other than the request succeeds.
// Non-blocked failures (mux errors, missing tracks) propagate immediately;
// the ladder only absorbs anti-bot signatures.
func (c *Controller) acquireHD(ctx context.Context, id, url string, sess *media.Session, requested, base string) (string, string, error) {
	out, err := c.muxOnce(ctx, id, sess, requested, base)
	if err == nil {
		return out, requested, nil
	}
	if !media.IsBlocked(err) {
		return "", "", err
	}
	slog.Warn("HD download blocked, descending quality ladder", "job_id", id, "requested", requested, "error", err)

	for _, step := range ladderFor(requested) {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		switch step.mode {
		case stepMux:
			out, err := c.muxOnce(ctx, id, sess, step.resolution, base)
			if err == nil {
				return out, step.resolution + " (HD blocked)", nil
			}
			slog.Warn("ladder candidate failed", "job_id", id, "candidate", step.resolution, "error", err)
		case stepProgressive:
			desc := resolver.ProgressiveAt(sess, step.resolution)
			if desc == nil {
				continue
			}
			out := c.progressivePath(base, step.resolution, desc.Container)
			c.setStatus(id, StatusDownloading, 25, fmt.Sprintf("Downloading %s...", step.resolution))
			if err := c.fetcher.Fetch(ctx, sess, *desc, out); err != nil {
				slog.Warn("ladder candidate failed", "job_id", id, "candidate", step.resolution, "error", err)
				continue
			}
			return out, step.resolution + " (HD blocked)", nil
		}
	}

	// Ladder exhausted. Last resort is whatever progressive stream ranks
	// highest, regardless of resolution.
	best := resolver.BestProgressive(sess)
	if best == nil {
		return "", "", media.ErrNoQualityAvailable
	}
	out = c.progressivePath(base, best.Resolution, best.Container)
	c.setStatus(id, StatusDownloading, 25, fmt.Sprintf("Downloading %s...", best.Resolution))
	if err := c.fetcher.Fetch(ctx, sess, *best, out); err != nil {
		return "", "", fmt.Errorf("%w: last attempt: %v", media.ErrNoQualityAvailable, err)
	}
	return out, best.Resolution + " (best available)", nil
}

// muxOnce downloads the adaptive video and audio tracks into temp files and
// combines them. Temp files are removed on every outcome.
func (c *Controller) muxOnce(ctx context.Context, id string, sess *media.Session, resolution, base string) (string, error) {
	sel, err := resolver.Select(sess, resolution, true)
	if err != nil {
		return "", err
	}

	videoTmp := filepath.Join(c.outDir, id+"_video.mp4")
	audioTmp := filepath.Join(c.outDir, id+"_audio.mp4")
	defer os.Remove(videoTmp)
	defer os.Remove(audioTmp)

	c.setStatus(id, StatusDownloadingVideo, 25, fmt.Sprintf("Downloading %s video...", resolution))
	if err := c.fetcher.Fetch(ctx, sess, *sel.Video, videoTmp); err != nil {
		return "", err
	}

	c.setStatus(id, StatusDownloadingAudio, 50, "Downloading audio...")
	if err := c.fetcher.Fetch(ctx, sess, *sel.Audio, audioTmp); err != nil {
		return "", err
	}

	c.setStatus(id, StatusProcessing, 75, "Combining video and audio...")
	out := filepath.Join(c.outDir, fmt.Sprintf("%s_HD_%s.mp4", base, resolution))
	if err := c.muxer.Mux(ctx, videoTmp, audioTmp, out); err != nil {
		return "", err
	}
	return out, nil
}
