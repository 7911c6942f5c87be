package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestSweepRemovesOnlyExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := writeAgedFile(t, dir, "old_720p.mp4", 2*time.Hour)
	fresh := writeAgedFile(t, dir, "fresh_360p.mp4", 5*time.Minute)

	s := NewSweeper(dir, 30*time.Minute, time.Hour)
	removed := s.Sweep(time.Now())

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestSweepBoundaryIsExclusive(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	exact := writeAgedFile(t, dir, "exact.mp4", time.Hour)

	s := NewSweeper(dir, 30*time.Minute, time.Hour)
	// Files exactly at the threshold survive; only strictly older go.
	removed := s.Sweep(now)
	assert.Equal(t, 0, removed)
	assert.FileExists(t, exact)
}

func TestSweepSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "keep")
	require.NoError(t, os.Mkdir(sub, 0o755))
	stamp := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(sub, stamp, stamp))

	s := NewSweeper(dir, 30*time.Minute, time.Hour)
	assert.Equal(t, 0, s.Sweep(time.Now()))
	assert.DirExists(t, sub)
}

func TestSweepMissingDirIsHarmless(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "nope"), 30*time.Minute, time.Hour)
	assert.Equal(t, 0, s.Sweep(time.Now()))
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	s := NewSweeper(t.TempDir(), 10*time.Millisecond, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
