package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (c *collector) handle(_ context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, filepath.Base(path))
	return c.err
}

func (c *collector) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestWatcherDebouncesWrites(t *testing.T) {
	root := t.TempDir()
	c := &collector{}
	w, err := New(root, 50*time.Millisecond, c.handle)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.True(t, w.IsWatching())

	path := filepath.Join(root, "p01.pddl")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("(define (problem p01))"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))

	require.Eventually(t, func() bool { return len(c.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"p01.pddl"}, c.seen())

	stats := w.GetStats()
	assert.Equal(t, 1, stats.Handled)
	assert.GreaterOrEqual(t, stats.FilesCreated+stats.FilesModified, 1)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	c := &collector{err: errors.New("unsolvable")}
	w, err := New(root, 20*time.Millisecond, c.handle)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	sub := filepath.Join(root, "logistics")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.Eventually(t, func() bool { return len(w.WatchedDirs()) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "p02.pddl"), []byte("(x)"), 0644))
	require.Eventually(t, func() bool { return w.GetStats().Failed == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"p02.pddl"}, c.seen())
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(t.TempDir(), 0, func(context.Context, string) error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsWatching())
	cancel()
	require.Eventually(t, func() bool { return !w.IsWatching() }, 2*time.Second, 10*time.Millisecond)
	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w, err := New(t.TempDir(), time.Second, func(context.Context, string) error { return nil })
	require.NoError(t, err)
	w.Stop()
}

func TestWatcherStartMissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "absent"), 0, func(context.Context, string) error { return nil })
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Start(context.Background()))
	assert.False(t, w.IsWatching())
}

func TestWatcherRequeuesProblemsOnDomainChange(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a/p01.pddl", "a/sub/p02.pddl", "a/.cache/p03.pddl", "b/p04.pddl"} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("(x)"), 0644))
	}

	c := &collector{}
	w, err := New(root, 30*time.Millisecond, c.handle)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "domain.pddl"), []byte("(define (domain d))"), 0644))

	require.Eventually(t, func() bool { return len(c.seen()) == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"p01.pddl", "p02.pddl"}, c.seen())

	stats := w.GetStats()
	assert.GreaterOrEqual(t, stats.DomainChanges, 1)
	assert.Equal(t, "domain", stats.LastEventType)
}
