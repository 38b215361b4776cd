package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/strategy"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	mode   string
	limit  int
	format string
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the index",
		Long: `Search the index in keyword (TF-IDF), phrase or boolean mode.

Examples:
  inverton search quick fox
  inverton search "brown fox" --mode phrase
  inverton search "fox AND NOT (cat OR dog)" --mode boolean --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), root, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "keyword", "Search mode: keyword, phrase, boolean")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results (0 for all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runSearch(ctx context.Context, out io.Writer, root *rootOptions, query string, opts searchOptions) error {
	mode, err := strategy.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	if opts.limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", opts.limit)
	}

	a, err := newApp(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	results, err := a.newEngine(nil).Search(ctx, query, engine.Options{Mode: mode, Limit: opts.limit})
	if err != nil {
		return err
	}
	return printResults(out, opts.format, query, mode, results, time.Since(start))
}

func printResults(out io.Writer, format, query string, mode strategy.Mode, results []engine.Result, took time.Duration) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"query":      query,
			"mode":       mode.String(),
			"results":    results,
			"returned":   len(results),
			"latency_ms": took.Milliseconds(),
		})
	}
	if len(results) == 0 {
		fmt.Fprintf(out, "no results for %q\n", query)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tPATH")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\n", i+1, r.Score, r.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d results in %s\n", len(results), took.Round(time.Microsecond))
	return nil
}
