package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) Enqueue(_ context.Context, path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return "id"
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.paths {
		if p == path {
			n++
		}
	}
	return n
}

func start(t *testing.T, root string, opts Options) *recorder {
	t.Helper()
	rec := &recorder{}
	w, err := New(root, rec, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Run registers watches asynchronously; keep touching a marker file
	// until one change gets through. Touches are spaced wider than the
	// debounce so each one can flush.
	marker := filepath.Join(root, "ready.txt")
	tick := max(50*time.Millisecond, 2*opts.Debounce)
	require.Eventually(t, func() bool {
		_ = os.WriteFile(marker, []byte("ready"), 0o644)
		return rec.count(marker) > 0
	}, 5*time.Second+10*tick, tick)
	return rec
}

func TestWatcherEnqueuesWrittenFile(t *testing.T) {
	root := t.TempDir()
	rec := start(t, root, Options{Debounce: 20 * time.Millisecond})

	path := filepath.Join(root, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("the quick brown fox"), 0o644))

	assert.Eventually(t, func() bool { return rec.count(path) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherCoalescesBursts(t *testing.T) {
	root := t.TempDir()
	rec := start(t, root, Options{Debounce: 300 * time.Millisecond})

	path := filepath.Join(root, "burst.txt")
	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}

	require.Eventually(t, func() bool { return rec.count(path) > 0 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1, rec.count(path))
}

func TestWatcherFlushesBusyTreeAfterMaxWait(t *testing.T) {
	root := t.TempDir()
	rec := start(t, root, Options{Debounce: 200 * time.Millisecond, MaxWait: 500 * time.Millisecond})

	busy := filepath.Join(root, "busy.log")
	other := filepath.Join(root, "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("waiting"), 0o644))

	// Writes every 50ms never leave the tree quiet for 200ms.
	stop := time.After(2 * time.Second)
	for flushed := false; !flushed; {
		select {
		case <-stop:
			t.Fatal("pending paths were never flushed while the tree stayed busy")
		case <-time.After(50 * time.Millisecond):
			require.NoError(t, os.WriteFile(busy, []byte(time.Now().String()), 0o644))
			flushed = rec.count(other) > 0
		}
	}
	assert.Equal(t, 1, rec.count(other))
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := start(t, root, Options{Debounce: 20 * time.Millisecond})

	sub := filepath.Join(root, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	path := filepath.Join(sub, "late.txt")

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("late arrival"), 0o644)
		return rec.count(path) > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcherSkipsHiddenFiles(t *testing.T) {
	root := t.TempDir()
	rec := start(t, root, Options{Debounce: 20 * time.Millisecond})

	hidden := filepath.Join(root, ".swap")
	visible := filepath.Join(root, "visible.txt")
	require.NoError(t, os.WriteFile(hidden, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(visible, []byte("y"), 0o644))

	require.Eventually(t, func() bool { return rec.count(visible) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, rec.count(hidden))
}

func TestNewRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := New(path, &recorder{}, Options{})
	assert.ErrorContains(t, err, "not a directory")

	_, err = New(filepath.Join(t.TempDir(), "missing"), &recorder{}, Options{})
	assert.Error(t, err)
}
