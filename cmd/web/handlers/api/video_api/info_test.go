package video_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reeldrop.app/reeldrop/internal/media"
)

type fakeSessionResolver struct {
	sess *media.Session
	err  error
}

func (f *fakeSessionResolver) Resolve(context.Context, string) (*media.Session, error) {
	return f.sess, f.err
}

func postInfo(t *testing.T, resolver SessionResolver, muxAvailable bool, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/get_video_info", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, HandleInfo(resolver, func() bool { return muxAvailable })(e.NewContext(req, rec)))
	return rec
}

func infoSession() *media.Session {
	return &media.Session{
		Title:           "Ocean Documentary",
		Author:          "Blue Planet",
		DurationSeconds: 312,
		Views:           420000,
		ThumbnailURL:    "https://i.ytimg.com/vi/abc/hq720.jpg",
		Streams: []media.StreamDescriptor{
			{FormatID: "22", Resolution: "720p", Kind: media.KindProgressive, Container: "mp4", Size: 52428800},
			{FormatID: "137", Resolution: "1080p", Kind: media.KindAdaptiveVideo, Container: "mp4"},
			{FormatID: "136", Resolution: "720p", Kind: media.KindAdaptiveVideo, Container: "mp4"},
			{FormatID: "18", Resolution: "360p", Kind: media.KindProgressive, Container: "mp4"},
			{FormatID: "140", Resolution: "audio", Kind: media.KindAudioOnly, Container: "m4a", Bitrate: 129},
			{FormatID: "139", Resolution: "audio", Kind: media.KindAudioOnly, Container: "m4a", Bitrate: 48},
		},
	}
}

func TestHandleInfo(t *testing.T) {
	rec := postInfo(t, &fakeSessionResolver{sess: infoSession()}, true, `{"url":"https://youtu.be/abc"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp infoView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Ocean Documentary", resp.VideoInfo.Title)
	assert.Equal(t, "Blue Planet", resp.VideoInfo.Author)
	assert.Equal(t, int64(312), resp.VideoInfo.Length)
	assert.Equal(t, "https://i.ytimg.com/vi/abc/hq720.jpg", resp.VideoInfo.Thumbnail)
	assert.True(t, resp.FfmpegAvailable)

	require.Len(t, resp.Streams, 4)
	// Best rank first, single audio entry last.
	assert.Equal(t, "1080p HD", resp.Streams[0].Quality)
	assert.Equal(t, "720p", resp.Streams[1].Quality)
	assert.Equal(t, "progressive", resp.Streams[1].Type, "progressive shadows adaptive at the same resolution")
	assert.Equal(t, "50.0 MB", resp.Streams[1].Size)
	assert.Equal(t, "360p", resp.Streams[2].Quality)
	assert.Equal(t, "Audio only", resp.Streams[3].Quality)
	assert.Equal(t, "140", resp.Streams[3].FormatID, "highest-bitrate audio wins")
}

func TestHandleInfoWithoutMuxer(t *testing.T) {
	rec := postInfo(t, &fakeSessionResolver{sess: infoSession()}, false, `{"url":"https://youtu.be/abc"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp infoView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FfmpegAvailable)

	// Adaptive-only resolutions cannot be delivered without muxing, so they
	// are not offered at all.
	require.Len(t, resp.Streams, 3)
	assert.Equal(t, "720p", resp.Streams[0].Quality)
	assert.Equal(t, "360p", resp.Streams[1].Quality)
	assert.Equal(t, "Audio only", resp.Streams[2].Quality)
	for _, sv := range resp.Streams {
		assert.NotEqual(t, string(media.KindAdaptiveVideo), sv.Type)
	}
}

func TestHandleInfoMissingURL(t *testing.T) {
	rec := postInfo(t, &fakeSessionResolver{}, true, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInfoResolverFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid url", media.ErrInvalidInput, http.StatusBadRequest},
		{"removed video", &media.Failure{Kind: media.FailureNotFound, Err: errors.New("Video unavailable")}, http.StatusBadRequest},
		{"all strategies blocked", media.ErrResolutionExhausted, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postInfo(t, &fakeSessionResolver{err: tc.err}, true, `{"url":"https://youtu.be/abc"}`)
			assert.Equal(t, tc.code, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
			assert.NotContains(t, resp["error"], "Video unavailable", "raw extractor text must not leak")
		})
	}
}
