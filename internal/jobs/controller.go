package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"reeldrop.app/reeldrop/internal/media"
	"reeldrop.app/reeldrop/internal/resolver"
	"reeldrop.app/reeldrop/internal/sourceurl"
	"reeldrop.app/reeldrop/pkg/utils/filename"
	"reeldrop.app/reeldrop/pkg/utils/format"
)

// SessionResolver turns a source URL into an inspected session.
type SessionResolver interface {
	Resolve(ctx context.Context, rawURL string) (*media.Session, error)
}

// StreamFetcher transfers one stream descriptor to a local file.
type StreamFetcher interface {
	Fetch(ctx context.Context, sess *media.Session, desc media.StreamDescriptor, destPath string) error
}

// Muxer combines a separate video and audio track into one container.
type Muxer interface {
	Available() bool
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error
}

const (
	defaultWorkers    = 4
	defaultQueueSize  = 16
	defaultRetryDelay = 5 * time.Second

	transferAttempts = 3
	resolveAttempts  = 3
)

// Options tunes the controller. Zero values take the defaults above.
type Options struct {
	OutputDir  string
	Workers    int
	QueueSize  int
	RetryDelay time.Duration
}

type request struct {
	id         string
	url        string
	resolution string
}

// Controller accepts download requests, runs them on a bounded worker pool
// and records their lifecycle in the store. A full queue rejects new work
// with ErrBusy rather than growing without bound.
type Controller struct {
	store      Store
	resolve    SessionResolver
	fetcher    StreamFetcher
	muxer      Muxer
	outDir     string
	workers    int
	retryDelay time.Duration
	queue      chan request

	// sleep is swapped out in tests to avoid real retry delays.
	sleep func(time.Duration)
}

func NewController(store Store, res SessionResolver, fetcher StreamFetcher, muxer Muxer, opts Options) *Controller {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	return &Controller{
		store:      store,
		resolve:    res,
		fetcher:    fetcher,
		muxer:      muxer,
		outDir:     opts.OutputDir,
		workers:    opts.Workers,
		retryDelay: opts.RetryDelay,
		queue:      make(chan request, opts.QueueSize),
		sleep:      time.Sleep,
	}
}

// Run drives the worker pool until ctx is cancelled. It blocks.
func (c *Controller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case req := <-c.queue:
					c.process(ctx, req)
				}
			}
		}()
	}
	wg.Wait()
}

// Start registers a new job and enqueues it. It returns the job identifier
// immediately; all transfer work happens on the pool. A full queue returns
// ErrBusy and leaves no record behind.
func (c *Controller) Start(rawURL, resolution string) (string, error) {
	if rawURL == "" || resolution == "" {
		return "", fmt.Errorf("%w: url and resolution are required", media.ErrInvalidInput)
	}
	if !sourceurl.Recognized(rawURL) {
		return "", fmt.Errorf("%w: unrecognized source url", media.ErrInvalidInput)
	}

	id := uuid.NewString()
	c.store.Put(&Job{
		ID:                  id,
		URL:                 rawURL,
		Status:              StatusStarting,
		Progress:            0,
		Message:             "Starting download...",
		RequestedResolution: resolution,
		CreatedAt:           time.Now(),
	})

	select {
	case c.queue <- request{id: id, url: rawURL, resolution: resolution}:
	default:
		c.store.Delete(id)
		return "", ErrBusy
	}

	slog.Info("download queued", "job_id", id, "resolution", resolution)
	return id, nil
}

// Poll returns a snapshot of the job record.
func (c *Controller) Poll(id string) (Job, error) {
	job, ok := c.store.Get(id)
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// Fetch returns the output path and download filename for a completed job.
// A completed record whose file the sweeper already reclaimed yields
// ErrArtifactMissing; the record itself stays queryable.
func (c *Controller) Fetch(id string) (path, name string, err error) {
	job, ok := c.store.Get(id)
	if !ok {
		return "", "", ErrJobNotFound
	}
	if job.Status != StatusCompleted {
		return "", "", ErrJobNotReady
	}
	if _, statErr := os.Stat(job.OutputPath); statErr != nil {
		return "", "", ErrArtifactMissing
	}
	return job.OutputPath, job.OutputFilename, nil
}

func (c *Controller) process(ctx context.Context, req request) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("download worker panic", "job_id", req.id, "panic", r)
			c.fail(req.id, fmt.Errorf("internal error: %v", r))
		}
	}()

	started := time.Now()
	c.setStatus(req.id, StatusDownloading, 5, "Connecting to the source...")

	sess, err := c.resolveWithRetry(ctx, req.url)
	if err != nil {
		c.fail(req.id, err)
		return
	}
	base := filename.Sanitize(sess.Title, 0)

	var (
		outPath  string
		achieved string
	)
	switch {
	case req.resolution == media.AudioResolution:
		outPath, err = c.downloadAudio(ctx, req.id, sess, base)
		achieved = media.AudioResolution
	case media.IsHDToken(req.resolution) && c.muxer.Available():
		outPath, achieved, err = c.acquireHD(ctx, req.id, req.url, sess, req.resolution, base)
	default:
		outPath, achieved, err = c.downloadProgressive(ctx, req.id, req.url, sess, req.resolution, base)
	}
	if err != nil {
		c.fail(req.id, err)
		return
	}

	c.complete(req.id, outPath, achieved, started)
}

// resolveWithRetry resolves the session, retrying only blocked failures.
func (c *Controller) resolveWithRetry(ctx context.Context, url string) (*media.Session, error) {
	var lastErr error
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		if attempt > 0 {
			slog.Warn("session resolution blocked, retrying", "attempt", attempt+1, "delay", c.retryDelay)
			c.sleep(c.retryDelay)
		}
		sess, err := c.resolve.Resolve(ctx, url)
		if err == nil {
			return sess, nil
		}
		lastErr = err
		if !media.IsBlocked(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Controller) downloadAudio(ctx context.Context, id string, sess *media.Session, base string) (string, error) {
	sel, err := resolver.Select(sess, media.AudioResolution, false)
	if err != nil {
		return "", err
	}
	ext := sel.Stream.Container
	if ext == "" {
		ext = "mp4"
	}
	out := filepath.Join(c.outDir, base+"_audio."+ext)
	c.setStatus(id, StatusDownloadingAudio, 25, "Downloading audio...")
	if err := c.transfer(ctx, sess, *sel.Stream, out, nil); err != nil {
		return "", err
	}
	return out, nil
}

// downloadProgressive handles the single-file path: an exact progressive
// match on the token, or a documented degradation to the best available one.
func (c *Controller) downloadProgressive(ctx context.Context, id, url string, sess *media.Session, token, base string) (string, string, error) {
	sel, err := resolver.Select(sess, token, false)
	if err != nil {
		return "", "", err
	}
	achieved := sel.Stream.Resolution
	out := c.progressivePath(base, achieved, sel.Stream.Container)

	c.setStatus(id, StatusDownloading, 25, fmt.Sprintf("Downloading %s...", achieved))

	// Blocked transfers restart from a fresh session: the stream URLs inside
	// the old one are tied to the strategy that got blocked.
	refresh := func(ctx context.Context) (*media.Session, *media.StreamDescriptor, error) {
		fresh, err := c.resolve.Resolve(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		resel, err := resolver.Select(fresh, token, false)
		if err != nil {
			return nil, nil, err
		}
		return fresh, resel.Stream, nil
	}
	if err := c.transfer(ctx, sess, *sel.Stream, out, refresh); err != nil {
		return "", "", err
	}
	if !sel.Exact {
		achieved += " (best available)"
	}
	return out, achieved, nil
}

// transfer runs one stream download with bounded retries. Only blocked
// failures retry; when a refresh function is supplied it is invoked before
// each retry to obtain a new session and descriptor.
func (c *Controller) transfer(ctx context.Context, sess *media.Session, desc media.StreamDescriptor, dest string, refresh func(context.Context) (*media.Session, *media.StreamDescriptor, error)) error {
	cur, curDesc := sess, desc
	var lastErr error
	for attempt := 0; attempt < transferAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(c.retryDelay)
			if refresh != nil {
				fresh, freshDesc, err := refresh(ctx)
				if err != nil {
					lastErr = err
					continue
				}
				cur, curDesc = fresh, *freshDesc
			}
		}
		err := c.fetcher.Fetch(ctx, cur, curDesc, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if !media.IsBlocked(err) {
			return err
		}
		slog.Warn("stream transfer blocked", "attempt", attempt+1, "dest", filepath.Base(dest))
	}
	return lastErr
}

func (c *Controller) progressivePath(base, resolution, container string) string {
	ext := container
	if ext == "" {
		ext = "mp4"
	}
	return filepath.Join(c.outDir, fmt.Sprintf("%s_%s.%s", base, resolution, ext))
}

func (c *Controller) complete(id, outPath, achieved string, started time.Time) {
	name := filepath.Base(outPath)
	c.store.Update(id, func(j *Job) {
		if !j.Status.canTransition(StatusCompleted) {
			return
		}
		j.Status = StatusCompleted
		j.Progress = 100
		j.Message = "Download completed"
		j.OutputPath = outPath
		j.OutputFilename = name
		j.AchievedResolution = achieved
	})

	size := "unknown"
	if info, err := os.Stat(outPath); err == nil {
		size = humanize.IBytes(uint64(info.Size()))
	}
	slog.Info("download completed",
		"job_id", id,
		"file", name,
		"resolution", achieved,
		"size", size,
		"took", format.JobDuration(time.Since(started)))
}

// fail marks the job errored with a user-actionable detail. The raw cause
// goes to the log, never to the record.
func (c *Controller) fail(id string, err error) {
	detail := media.Remediation(err)
	c.store.Update(id, func(j *Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = StatusError
		j.Message = "Download failed"
		j.ErrorDetail = detail
	})
	slog.Error("download failed", "job_id", id, "kind", media.KindOf(err), "error", err)
}

// setStatus applies a status/progress/message step, silently dropping
// transitions the lifecycle does not allow.
func (c *Controller) setStatus(id string, status Status, progress int, message string) {
	c.store.Update(id, func(j *Job) {
		if !j.Status.canTransition(status) {
			return
		}
		j.Status = status
		j.Progress = progress
		j.Message = message
	})
}
