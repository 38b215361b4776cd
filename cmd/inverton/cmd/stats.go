package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/postgres"
	"github.com/spf13/cobra"
)

type indexStats struct {
	TotalDocuments int64                      `json:"total_documents"`
	Catalog        map[catalog.Status]int64   `json:"catalog,omitempty"`
	Analytics      *analytics.AggregatedStats `json:"analytics,omitempty"`
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Print the number of indexed documents. With postgres.enabled the
document catalog is summarized by status, followed by the latest analytics
snapshot when one exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd.OutOrStdout(), root, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runStats(ctx context.Context, out io.Writer, root *rootOptions, format string) error {
	cfg := root.cfg
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	total, err := totalDocuments(ctx, st)
	if err != nil {
		return err
	}
	stats := indexStats{TotalDocuments: total}

	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		counts, err := catalog.New(pg.DB).Counts(ctx)
		if err != nil {
			return err
		}
		stats.Catalog = counts

		// Snapshots exist only once a server has run with kafka enabled.
		snapshots := aggregator.NewStore(pg.DB)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			return err
		}
		if stats.Analytics, err = snapshots.LatestSnapshot(ctx); err != nil {
			return err
		}
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintf(out, "documents: %d\n", stats.TotalDocuments)
	if stats.Catalog != nil {
		for _, s := range []catalog.Status{catalog.StatusPending, catalog.StatusIndexed, catalog.StatusFailed} {
			fmt.Fprintf(out, "  %-8s %d\n", s, stats.Catalog[s])
		}
	}
	if a := stats.Analytics; a != nil {
		fmt.Fprintf(out, "searches: %d (%d errors, %d zero-result)\n", a.TotalSearches, a.SearchErrors, a.ZeroResultCount)
		fmt.Fprintf(out, "latency:  avg %.1fms  p95 %dms  p99 %dms\n", a.AvgLatencyMs, a.P95LatencyMs, a.P99LatencyMs)
	}
	return nil
}

// totalDocuments reads the raw counter; an empty index reports zero.
func totalDocuments(ctx context.Context, st store.Store) (int64, error) {
	v, err := st.Get(ctx, store.TotalDocsKey)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", store.TotalDocsKey, err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q: %w", store.TotalDocsKey, v, err)
	}
	return n, nil
}
