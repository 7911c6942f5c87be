package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is one entry of yt-dlp's formats array. It intentionally models only
// the fields the downloader branches on.
type Format struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Height         int     `json:"height"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	ABR            float64 `json:"abr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// HasVideo reports whether the format carries a video track.
func (f Format) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the format carries an audio track.
func (f Format) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// Size returns the reported byte size, preferring the exact value.
func (f Format) Size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

// Info is a light wrapper over yt-dlp JSON output. It intentionally models
// only common fields. The full JSON is preserved in Raw.
type Info struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	WebpageURL  string          `json:"webpage_url"`
	Uploader    string          `json:"uploader"`
	Channel     string          `json:"channel"`
	Duration    float64         `json:"duration"`
	ViewCount   int64           `json:"view_count"`
	Description string          `json:"description"`
	Thumbnail   string          `json:"thumbnail"`
	Formats     []Format        `json:"formats"`
	Raw         json.RawMessage `json:"-"`
}

// GetInfo runs yt-dlp in "metadata only" mode and parses its JSON output.
// It uses: --dump-single-json --skip-download
func (c *Client) GetInfo(ctx context.Context, url string, extraArgs ...string) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}

	args := []string{"--dump-single-json", "--skip-download"}
	args = append(args, extraArgs...)
	args = append(args, url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return nil, wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}

	raw := bytes.TrimSpace(stdout)
	info := &Info{Raw: append([]byte(nil), raw...)}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("ytdlp: parse json: %w", err)
	}

	return info, nil
}

// DownloadFormat fetches exactly one format to destPath. The format ID must
// come from a GetInfo call issued with the same client identity, otherwise
// the extractor may enumerate a different format table.
func (c *Client) DownloadFormat(ctx context.Context, url string, formatID string, destPath string, extraArgs ...string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(formatID) == "" {
		return fmt.Errorf("ytdlp: formatID is required")
	}
	if strings.TrimSpace(destPath) == "" {
		return fmt.Errorf("ytdlp: destPath is required")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	args := []string{
		"-f", formatID,
		"-o", destPath,
		"--no-playlist",
		"--no-part",
		"--no-colors",
		"--progress",
		"--progress-delta", "5",
	}
	args = append(args, extraArgs...)
	args = append(args, url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return nil
}
