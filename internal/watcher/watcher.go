// Package watcher re-enqueues files under a directory tree when they are
// created or modified.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Enqueuer accepts a file path for indexing.
type Enqueuer interface {
	Enqueue(ctx context.Context, path string) string
}

// Options tunes a Watcher.
type Options struct {
	// Debounce is how long the tree must stay quiet before pending paths
	// are enqueued. Any event under the root restarts it.
	Debounce time.Duration
	// MaxWait caps how long a pending path waits while events keep
	// arriving. Defaults to ten times Debounce.
	MaxWait time.Duration
	// IncludeHidden watches dot-files and dot-directories too.
	IncludeHidden bool
}

// Watcher forwards filesystem changes under a root directory to an
// Enqueuer. Bursts of events for the same path collapse into one enqueue.
type Watcher struct {
	root   string
	q      Enqueuer
	opts   Options
	fsw    *fsnotify.Watcher
	logger *slog.Logger

	pending map[string]struct{}
}

// New creates a Watcher for root. Nothing is watched until Run is called.
func New(root string, q Enqueuer, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.MaxWait < opts.Debounce {
		opts.MaxWait = 10 * opts.Debounce
	}
	return &Watcher{
		root:    abs,
		q:       q,
		opts:    opts,
		fsw:     fsw,
		logger:  slog.Default().With("component", "watcher", "root", abs),
		pending: make(map[string]struct{}),
	}, nil
}

// Run watches until ctx is cancelled. Pending paths are flushed before it
// returns. The underlying fsnotify watcher is closed on exit, so Run may
// only be called once.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("adding directories to watcher: %w", err)
	}
	w.logger.Info("watching for changes", "debounce", w.opts.Debounce)

	quiet := time.NewTimer(w.opts.Debounce)
	quiet.Stop()
	defer quiet.Stop()
	deadline := time.NewTimer(w.opts.MaxWait)
	deadline.Stop()
	defer deadline.Stop()
	waiting := false
	flush := func(ctx context.Context) {
		quiet.Stop()
		deadline.Stop()
		waiting = false
		w.flush(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx))
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				flush(ctx)
				return nil
			}
			if w.handle(event) {
				quiet.Reset(w.opts.Debounce)
				if !waiting {
					deadline.Reset(w.opts.MaxWait)
					waiting = true
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				flush(ctx)
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-quiet.C:
			flush(ctx)
		case <-deadline.C:
			w.logger.Debug("flushing busy tree", "max_wait", w.opts.MaxWait)
			flush(ctx)
		}
	}
}

// handle records event and reports whether a path became pending.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if w.ignored(event.Name) {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		// Removed again before we looked.
		return false
	}
	if info.IsDir() {
		if !event.Has(fsnotify.Create) {
			return false
		}
		before := len(w.pending)
		if err := w.addRecursive(event.Name); err != nil {
			w.logger.Warn("watching new directory failed", "path", event.Name, "error", err)
		}
		return len(w.pending) > before
	}
	if !info.Mode().IsRegular() {
		return false
	}
	w.pending[event.Name] = struct{}{}
	return true
}

func (w *Watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	for path := range w.pending {
		docID := w.q.Enqueue(ctx, path)
		w.logger.Debug("change enqueued", "path", path, "doc_id", docID)
	}
	w.logger.Info("changes enqueued", "files", len(w.pending))
	clear(w.pending)
}

// addRecursive watches dir and every non-ignored directory below it.
// Files already present in a newly created directory are enqueued as well.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != w.root && w.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if dir != w.root && d.Type().IsRegular() {
				w.pending[path] = struct{}{}
			}
			return nil
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) ignored(path string) bool {
	if w.opts.IncludeHidden {
		return false
	}
	return strings.HasPrefix(filepath.Base(path), ".")
}
