package jobs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// Sweeper periodically deletes output files older than a retention window.
// It only touches the filesystem; job records stay behind so a late fetch
// gets a precise "no longer available" answer instead of a 404.
type Sweeper struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
}

func NewSweeper(dir string, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{dir: dir, interval: interval, maxAge: maxAge}
}

// Run sweeps on the configured interval until ctx is cancelled. It blocks.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep removes files whose modification time is older than the retention
// window, measured against now. Per-file failures are logged and skipped so
// one stubborn file never stalls reclamation. It returns the number of
// files removed.
func (s *Sweeper) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("retention sweep failed to list downloads", "dir", s.dir, "error", err)
		return 0
	}

	removed := 0
	var reclaimed uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("retention sweep failed to stat file", "file", entry.Name(), "error", err)
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("retention sweep failed to remove file", "file", entry.Name(), "error", err)
			continue
		}
		removed++
		reclaimed += uint64(info.Size())
		slog.Info("reclaimed expired download", "file", entry.Name(), "age", age.Round(time.Minute))
	}
	if removed > 0 {
		slog.Info("retention sweep complete", "removed", removed, "reclaimed", humanize.IBytes(reclaimed))
	}
	return removed
}
