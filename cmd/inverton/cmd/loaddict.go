package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/engine"
	"github.com/spf13/cobra"
)

type loadDictOptions struct {
	lemmas      []string
	stopwords   []string
	language    string
	concurrency int
}

func newLoadDictCmd(root *rootOptions) *cobra.Command {
	var opts loadDictOptions
	cmd := &cobra.Command{
		Use:   "load-dict",
		Short: "Load lemma and stopword dictionaries into the store",
		Long: `Load dictionaries used by term normalization.

Lemma files hold one "term;lemma" pair per line. Stopword files hold one
word per line. Files are loaded concurrently.

Examples:
  inverton load-dict --lemmas lemmas.csv --stopwords stopwords.txt
  inverton load-dict --lemmas a.csv --lemmas b.csv --language de`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoadDict(cmd.Context(), cmd.OutOrStdout(), root, opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.lemmas, "lemmas", nil, "Lemma file (repeatable)")
	cmd.Flags().StringArrayVar(&opts.stopwords, "stopwords", nil, "Stopword file (repeatable)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Dictionary language (default indexer.language)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 2, "Files loaded at once")
	return cmd
}

func runLoadDict(ctx context.Context, out io.Writer, root *rootOptions, opts loadDictOptions) error {
	files := make([]lexicon.File, 0, len(opts.lemmas)+len(opts.stopwords))
	for _, p := range opts.lemmas {
		files = append(files, lexicon.File{Path: p, Kind: lexicon.Lemmas})
	}
	for _, p := range opts.stopwords {
		files = append(files, lexicon.File{Path: p, Kind: lexicon.Stopwords})
	}
	if len(files) == 0 {
		return errors.New("nothing to load: pass --lemmas and/or --stopwords")
	}

	cfg := root.cfg
	lang := opts.language
	if lang == "" {
		lang = cfg.Indexer.Language
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	loader := lexicon.NewLoader(st, lang, cfg.Indexer.DictLoadBatchSize)
	results, loadErr := loader.LoadFiles(ctx, files, opts.concurrency)

	paths := make([]string, 0, len(results))
	for p := range results {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		r := results[p]
		fmt.Fprintf(out, "%s: %d loaded, %d skipped\n", p, r.Loaded, r.Skipped)
	}

	// Cached results were computed with the old dictionaries.
	if cfg.Search.CacheEnabled && len(results) > 0 {
		qc := cache.New[[]engine.Result](st, cfg.Search.CacheTTL, nil)
		if _, err := qc.Invalidate(ctx); err != nil {
			slog.Warn("search cache invalidation failed", "error", err)
		}
	}
	return loadErr
}
