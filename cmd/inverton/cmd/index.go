package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/watcher"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/kafka"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// publishChunk keeps remote requests under the validator's path limit.
const publishChunk = 500

type indexOptions struct {
	watch  bool
	remote bool
	hidden bool
}

func newIndexCmd(root *rootOptions) *cobra.Command {
	var opts indexOptions
	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Index files and directories",
		Long: `Index the given files. Directories are walked recursively.

Examples:
  inverton index ./docs
  inverton index notes.txt ./corpus --watch
  inverton index ./corpus --remote   # publish to kafka.topics.indexRequests`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd.OutOrStdout(), root, args, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Keep running and re-index files that change under the given directories")
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "Publish index requests to Kafka instead of indexing locally")
	cmd.Flags().BoolVar(&opts.hidden, "hidden", false, "Include dot-files and dot-directories")
	return cmd
}

func runIndex(ctx context.Context, out io.Writer, root *rootOptions, args []string, opts indexOptions) error {
	files, dirs, err := collectFiles(args, opts.hidden)
	if err != nil {
		return err
	}
	if opts.remote {
		if opts.watch {
			return errors.New("--watch cannot be combined with --remote")
		}
		return publishRemote(ctx, out, root, files)
	}

	cfg := root.cfg
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openCatalog(ctx); err != nil {
		return err
	}
	if a.catalog != nil {
		a.queue.Subscribe(catalog.Listener(context.WithoutCancel(ctx), a.catalog))
	}

	for _, path := range files {
		a.queue.Enqueue(ctx, path)
	}
	if err := a.queue.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for indexing: %w", err)
	}
	stats := a.queue.Stats()
	fmt.Fprintf(out, "indexed %d of %d files (%d failed)\n", stats.Processed, stats.Total, stats.Failed)

	var qc *cache.QueryCache[[]engine.Result]
	if cfg.Search.CacheEnabled {
		qc = cache.New[[]engine.Result](a.store, cfg.Search.CacheTTL, nil)
		if n, err := qc.Invalidate(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("search cache invalidation failed", "error", err)
		} else if n > 0 {
			slog.Info("search cache invalidated", "keys_deleted", n)
		}
	}

	if !opts.watch {
		return nil
	}
	if len(dirs) == 0 {
		return errors.New("--watch needs at least one directory")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, dir := range dirs {
		w, err := watcher.New(dir, a.queue, watcher.Options{IncludeHidden: opts.hidden})
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}
	if qc != nil {
		a.queue.Subscribe(queue.InvalidateOnProcessed(context.WithoutCancel(ctx), qc))
	}
	fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", strings.Join(dirs, ", "))
	err = g.Wait()
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if werr := a.queue.Wait(drainCtx); werr != nil {
		slog.Warn("indexing queue not drained", "stats", a.queue.Stats(), "error", werr)
	}
	return err
}

// collectFiles expands args into absolute regular file paths and the
// directories they came from.
func collectFiles(args []string, hidden bool) (files, dirs []string, err error) {
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			add(abs)
			continue
		}
		dirs = append(dirs, abs)
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			if path != abs && !hidden && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("walking %s: %w", abs, err)
		}
	}
	return files, dirs, nil
}

func publishRemote(ctx context.Context, out io.Writer, root *rootOptions, files []string) error {
	cfg := root.cfg
	if !cfg.Kafka.Enabled {
		return errors.New("--remote requires kafka.enabled")
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexRequests)
	defer producer.Close()
	pub := publisher.New(producer)

	published := 0
	for start := 0; start < len(files); start += publishChunk {
		end := min(start+publishChunk, len(files))
		resp, err := pub.Submit(ctx, &ingestion.IndexRequest{Paths: files[start:end]})
		if err != nil {
			return err
		}
		published += len(resp.Accepted)
	}
	fmt.Fprintf(out, "published %d index requests to %s\n", published, cfg.Kafka.Topics.IndexRequests)
	return nil
}
