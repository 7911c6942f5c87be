package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reeldrop.app/reeldrop/internal/media"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func blockedErr() error {
	return &media.Failure{Kind: media.FailureBlocked, Err: errors.New("HTTP Error 403: Forbidden")}
}

func testSession(streams ...media.StreamDescriptor) *media.Session {
	return &media.Session{
		URL:     testURL,
		Profile: "android",
		Title:   "Never Gonna Give You Up",
		Author:  "Rick Astley",
		Streams: streams,
	}
}

func prog(res string) media.StreamDescriptor {
	return media.StreamDescriptor{FormatID: "p-" + res, Resolution: res, Kind: media.KindProgressive, Container: "mp4"}
}

func adaptive(res string) media.StreamDescriptor {
	return media.StreamDescriptor{FormatID: "v-" + res, Resolution: res, Kind: media.KindAdaptiveVideo, Container: "mp4"}
}

func audioStream(bitrate float64) media.StreamDescriptor {
	return media.StreamDescriptor{FormatID: "a-1", Resolution: media.AudioResolution, Kind: media.KindAudioOnly, Container: "m4a", Bitrate: bitrate}
}

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*media.Session, error)
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) (*media.Session, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()
	return f.fn(call)
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func staticResolver(sess *media.Session) *fakeResolver {
	return &fakeResolver{fn: func(int) (*media.Session, error) { return sess, nil }}
}

// fakeFetcher routes each fetch through fn keyed by format ID; a nil error
// writes a stub file so completion can stat it.
type fakeFetcher struct {
	mu    sync.Mutex
	fn    func(desc media.StreamDescriptor, dest string) error
	dests []string
}

func (f *fakeFetcher) Fetch(_ context.Context, _ *media.Session, desc media.StreamDescriptor, dest string) error {
	f.mu.Lock()
	f.dests = append(f.dests, dest)
	f.mu.Unlock()
	if f.fn != nil {
		if err := f.fn(desc, dest); err != nil {
			return err
		}
	}
	return os.WriteFile(dest, []byte("stub media payload"), 0o644)
}

type fakeMuxer struct {
	available bool
	err       error
}

func (f *fakeMuxer) Available() bool { return f.available }

func (f *fakeMuxer) Mux(_ context.Context, _, _, out string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, []byte("muxed payload"), 0o644)
}

// recordingStore wraps MemoryStore and records every status a job passes
// through.
type recordingStore struct {
	*MemoryStore
	mu      sync.Mutex
	history []Status
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore()}
}

func (s *recordingStore) Update(id string, fn func(*Job)) bool {
	ok := s.MemoryStore.Update(id, func(j *Job) {
		before := j.Status
		fn(j)
		if j.Status != before {
			s.mu.Lock()
			s.history = append(s.history, j.Status)
			s.mu.Unlock()
		}
	})
	return ok
}

func (s *recordingStore) statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Status(nil), s.history...)
}

func newTestController(t *testing.T, store Store, res SessionResolver, fetcher StreamFetcher, muxer Muxer) *Controller {
	t.Helper()
	c := NewController(store, res, fetcher, muxer, Options{
		OutputDir: t.TempDir(),
		Workers:   1,
		QueueSize: 4,
	})
	c.sleep = func(time.Duration) {}
	return c
}

// runJob starts a job and drives it synchronously to its terminal state.
func runJob(t *testing.T, c *Controller, url, resolution string) Job {
	t.Helper()
	id, err := c.Start(url, resolution)
	require.NoError(t, err)
	c.process(context.Background(), <-c.queue)
	job, err := c.Poll(id)
	require.NoError(t, err)
	require.True(t, job.Status.Terminal(), "job should reach a terminal state, got %q", job.Status)
	return job
}

func TestStartValidation(t *testing.T) {
	c := newTestController(t, NewMemoryStore(), staticResolver(testSession()), &fakeFetcher{}, &fakeMuxer{})

	_, err := c.Start("", "720p")
	assert.ErrorIs(t, err, media.ErrInvalidInput)

	_, err = c.Start(testURL, "")
	assert.ErrorIs(t, err, media.ErrInvalidInput)

	_, err = c.Start("https://example.com/watch?v=abc", "720p")
	assert.ErrorIs(t, err, media.ErrInvalidInput)
}

func TestStartQueueFullRejects(t *testing.T) {
	store := NewMemoryStore()
	c := NewController(store, staticResolver(testSession()), &fakeFetcher{}, &fakeMuxer{}, Options{
		OutputDir: t.TempDir(),
		Workers:   1,
		QueueSize: 1,
	})

	// No worker running, so the single slot fills and stays full.
	_, err := c.Start(testURL, "360p")
	require.NoError(t, err)

	id, err := c.Start(testURL, "360p")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, id)

	// The rejected request must leave no record behind.
	_, ok := store.Get(id)
	assert.False(t, ok)
}

func TestProgressiveExactDownload(t *testing.T) {
	sess := testSession(prog("360p"), prog("720p"))
	c := newTestController(t, NewMemoryStore(), staticResolver(sess), &fakeFetcher{}, &fakeMuxer{})

	job := runJob(t, c, testURL, "360p")
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "360p", job.AchievedResolution)
	assert.Contains(t, job.OutputFilename, "Never Gonna Give You Up")
	assert.Contains(t, job.OutputFilename, "360p")
	_, err := os.Stat(job.OutputPath)
	assert.NoError(t, err)
}

func TestProgressiveDegradesToBestAvailable(t *testing.T) {
	sess := testSession(prog("240p"), prog("360p"))
	c := newTestController(t, NewMemoryStore(), staticResolver(sess), &fakeFetcher{}, &fakeMuxer{})

	job := runJob(t, c, testURL, "480p")
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "360p (best available)", job.AchievedResolution)
}

func TestAudioOnlyDownload(t *testing.T) {
	sess := testSession(prog("360p"), audioStream(128))
	c := newTestController(t, NewMemoryStore(), staticResolver(sess), &fakeFetcher{}, &fakeMuxer{})

	job := runJob(t, c, testURL, "audio")
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "audio", job.AchievedResolution)
	assert.True(t, strings.HasSuffix(job.OutputFilename, "_audio.m4a"), "got %q", job.OutputFilename)
}

func TestHDMuxSuccess(t *testing.T) {
	sess := testSession(adaptive("1080p"), audioStream(160), prog("360p"))
	store := newRecordingStore()
	c := newTestController(t, store, staticResolver(sess), &fakeFetcher{}, &fakeMuxer{available: true})

	job := runJob(t, c, testURL, "1080p")
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "1080p", job.AchievedResolution)
	assert.Contains(t, job.OutputFilename, "_HD_1080p.mp4")

	assert.Equal(t, []Status{
		StatusDownloading,
		StatusDownloadingVideo,
		StatusDownloadingAudio,
		StatusProcessing,
		StatusCompleted,
	}, store.statuses())
}

func TestHDWithoutMuxerFallsBackToProgressive(t *testing.T) {
	sess := testSession(adaptive("1080p"), audioStream(160), prog("720p"))
	c := newTestController(t, NewMemoryStore(), staticResolver(sess), &fakeFetcher{}, &fakeMuxer{available: false})

	job := runJob(t, c, testURL, "1080p")
	assert.Equal(t, StatusCompleted, job.Status)
	// 1080p progressive does not exist, so the best progressive wins.
	assert.Equal(t, "720p (best available)", job.AchievedResolution)
}

func TestTransferRetriesBlockedWithFreshSession(t *testing.T) {
	sess := testSession(prog("360p"))
	res := staticResolver(sess)
	attempts := 0
	fetcher := &fakeFetcher{fn: func(desc media.StreamDescriptor, _ string) error {
		attempts++
		if attempts == 1 {
			return blockedErr()
		}
		return nil
	}}
	c := newTestController(t, NewMemoryStore(), res, fetcher, &fakeMuxer{})

	job := runJob(t, c, testURL, "360p")
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 2, attempts)
	// One resolve up front plus one refresh before the retry.
	assert.Equal(t, 2, res.callCount())
}

func TestTransferGivesUpAfterBoundedBlockedAttempts(t *testing.T) {
	sess := testSession(prog("360p"))
	attempts := 0
	fetcher := &fakeFetcher{fn: func(media.StreamDescriptor, string) error {
		attempts++
		return blockedErr()
	}}
	c := newTestController(t, NewMemoryStore(), staticResolver(sess), fetcher, &fakeMuxer{})

	job := runJob(t, c, testURL, "360p")
	assert.Equal(t, StatusError, job.Status)
	assert.Equal(t, transferAttempts, attempts)
	assert.Contains(t, job.ErrorDetail, "blocking")
}

func TestNonBlockedTransferFailsImmediately(t *testing.T) {
	sess := testSession(prog("360p"))
	attempts := 0
	fetcher := &fakeFetcher{fn: func(media.StreamDescriptor, string) error {
		attempts++
		return errors.New("disk full")
	}}
	c := newTestController(t, NewMemoryStore(), staticResolver(sess), fetcher, &fakeMuxer{})

	job := runJob(t, c, testURL, "360p")
	assert.Equal(t, StatusError, job.Status)
	assert.Equal(t, 1, attempts)
	assert.NotEmpty(t, job.ErrorDetail)
}

func TestResolveRetriesOnlyBlockedFailures(t *testing.T) {
	res := &fakeResolver{fn: func(call int) (*media.Session, error) {
		if call < 2 {
			return nil, blockedErr()
		}
		return testSession(prog("360p")), nil
	}}
	c := newTestController(t, NewMemoryStore(), res, &fakeFetcher{}, &fakeMuxer{})

	job := runJob(t, c, testURL, "360p")
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 3, res.callCount())
}

func TestResolveNotFoundFailsFast(t *testing.T) {
	res := &fakeResolver{fn: func(int) (*media.Session, error) {
		return nil, &media.Failure{Kind: media.FailureNotFound, Err: errors.New("Video unavailable")}
	}}
	c := newTestController(t, NewMemoryStore(), res, &fakeFetcher{}, &fakeMuxer{})

	job := runJob(t, c, testURL, "360p")
	assert.Equal(t, StatusError, job.Status)
	assert.Equal(t, 1, res.callCount())
	assert.Contains(t, job.ErrorDetail, "unavailable")
}

func TestPollUnknownJob(t *testing.T) {
	c := newTestController(t, NewMemoryStore(), staticResolver(testSession()), &fakeFetcher{}, &fakeMuxer{})
	_, err := c.Poll("no-such-id")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestFetchLifecycle(t *testing.T) {
	sess := testSession(prog("360p"))
	store := NewMemoryStore()
	c := newTestController(t, store, staticResolver(sess), &fakeFetcher{}, &fakeMuxer{})

	_, _, err := c.Fetch("no-such-id")
	assert.ErrorIs(t, err, ErrJobNotFound)

	id, err := c.Start(testURL, "360p")
	require.NoError(t, err)
	_, _, err = c.Fetch(id)
	assert.ErrorIs(t, err, ErrJobNotReady)

	c.process(context.Background(), <-c.queue)
	path, name, err := c.Fetch(id)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(path), name)

	// Reclaimed file: the record stays, the artifact is gone.
	require.NoError(t, os.Remove(path))
	_, _, err = c.Fetch(id)
	assert.ErrorIs(t, err, ErrArtifactMissing)
	job, pollErr := c.Poll(id)
	require.NoError(t, pollErr)
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestWorkerPanicIsCaptured(t *testing.T) {
	res := &fakeResolver{fn: func(int) (*media.Session, error) { panic("boom") }}
	c := newTestController(t, NewMemoryStore(), res, &fakeFetcher{}, &fakeMuxer{})

	id, err := c.Start(testURL, "360p")
	require.NoError(t, err)
	c.process(context.Background(), <-c.queue)

	job, err := c.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, StatusError, job.Status)
	assert.NotEmpty(t, job.ErrorDetail)
}

func TestRunDrainsQueue(t *testing.T) {
	sess := testSession(prog("360p"))
	c := newTestController(t, NewMemoryStore(), staticResolver(sess), &fakeFetcher{}, &fakeMuxer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	id, err := c.Start(testURL, "360p")
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for {
		job, err := c.Poll(id)
		require.NoError(t, err)
		if job.Status.Terminal() {
			assert.Equal(t, StatusCompleted, job.Status)
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never completed, last status %q", job.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
