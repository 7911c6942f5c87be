// Package jobs owns asynchronous download jobs: the registry of job records,
// the bounded worker pool that drives them, the quality fallback ladder for
// blocked HD downloads, and the retention sweeper that reclaims output files.
package jobs

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a download job.
type Status string

const (
	StatusStarting         Status = "starting"
	StatusDownloading      Status = "downloading"
	StatusDownloadingVideo Status = "downloading_video"
	StatusDownloadingAudio Status = "downloading_audio"
	StatusProcessing       Status = "processing"
	StatusCompleted        Status = "completed"
	StatusError            Status = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// statusBand groups statuses into ordered phases. The in-flight phases
// (downloading, downloading_video, downloading_audio, processing) share a
// band because the fallback ladder legitimately revisits them while walking
// candidates; bands themselves only move forward.
var statusBand = map[Status]int{
	StatusStarting:         0,
	StatusDownloading:      1,
	StatusDownloadingVideo: 1,
	StatusDownloadingAudio: 1,
	StatusProcessing:       1,
	StatusCompleted:        2,
}

// canTransition reports whether a job may move from s to next. Error is
// reachable from any non-terminal state; everything else must not move to an
// earlier band.
func (s Status) canTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusError {
		return true
	}
	return statusBand[next] >= statusBand[s]
}

// Job is one download's mutable record. The owning worker is the only
// writer; poll/fetch read snapshots through the store.
type Job struct {
	ID  string
	URL string

	Status   Status
	Progress int
	Message  string

	RequestedResolution string
	// AchievedResolution is populated on completion. It equals the requested
	// resolution unless a fallback occurred, in which case it carries the
	// degradation annotation (e.g. "720p (HD blocked)").
	AchievedResolution string

	OutputFilename string
	// OutputPath is non-empty if and only if Status is StatusCompleted.
	OutputPath string

	ErrorDetail string

	CreatedAt time.Time
}

var (
	// ErrJobNotFound means no job record exists for the identifier.
	ErrJobNotFound = errors.New("download not found")
	// ErrJobNotReady means the job has not completed yet.
	ErrJobNotReady = errors.New("download not ready")
	// ErrArtifactMissing means the output file was reclaimed before fetch.
	ErrArtifactMissing = errors.New("download file no longer available")
	// ErrBusy means the job queue is full and new downloads are rejected.
	ErrBusy = errors.New("too many downloads in progress")
)
