// Package ffmpeg wraps the external ffmpeg binary for stream muxing.
package ffmpeg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FFmpeg is a handle to a configured ffmpeg binary. Availability is probed
// once and cached; a missing binary degrades HD features, it is not an error.
type FFmpeg struct {
	// Path to the ffmpeg executable. Defaults to "ffmpeg" (PATH lookup).
	Path string

	detectOnce sync.Once
	available  bool

	runFn func(ctx context.Context, name string, args []string) error
}

// New returns a handle for the given binary path ("" means PATH lookup).
func New(path string) *FFmpeg {
	return &FFmpeg{Path: path}
}

// PathOrDefault returns the configured path or "ffmpeg" if unset.
func (f *FFmpeg) PathOrDefault() string {
	if strings.TrimSpace(f.Path) == "" {
		return "ffmpeg"
	}
	return f.Path
}

// Available reports whether the binary responds to -version. The first call
// performs the probe; later calls return the cached result.
func (f *FFmpeg) Available() bool {
	f.detectOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		f.available = f.runArgs(ctx, []string{"-version"}) == nil
	})
	return f.available
}

// Mux combines a video-only file and an audio-only file into outPath.
// Video is stream-copied; audio is re-encoded to AAC so the output plays in a
// plain MP4 container regardless of the source audio codec.
func (f *FFmpeg) Mux(ctx context.Context, videoPath string, audioPath string, outPath string) error {
	if strings.TrimSpace(videoPath) == "" || strings.TrimSpace(audioPath) == "" {
		return fmt.Errorf("ffmpeg: video and audio paths are required")
	}
	if strings.TrimSpace(outPath) == "" {
		return fmt.Errorf("ffmpeg: output path is required")
	}

	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-y",
		outPath,
	}
	return f.runArgs(ctx, args)
}

func (f *FFmpeg) runArgs(ctx context.Context, args []string) error {
	if f.runFn != nil {
		return f.runFn(ctx, f.PathOrDefault(), args)
	}
	return run(ctx, f.PathOrDefault(), args)
}
