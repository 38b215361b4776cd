package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

var defaultLoadQueries = []string{
	"quick brown fox",
	"inverted index",
	"term frequency",
	"lazy dog",
	"search engine",
	"document ingestion",
	"phrase query",
	"stopword filtering",
}

type loadTestOptions struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	mode        string
	limit       int
	queries     []string
}

func newLoadTestCmd() *cobra.Command {
	var opts loadTestOptions
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive concurrent search requests against a running server",
		Long: `Send search requests from several workers for a fixed duration and
report throughput, latency percentiles and status codes.

Examples:
  inverton loadtest --url http://localhost:8080 -C 20 -d 1m
  inverton loadtest -q "quick fox" -q "lazy dog" --mode phrase`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := runLoadTest(cmd.Context(), opts)
			if err != nil {
				return err
			}
			report.Print(cmd.OutOrStdout())
			if report.Total == 0 {
				return errors.New("no requests completed; is the server running?")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Server base URL")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "C", 10, "Concurrent workers")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 30*time.Second, "Test duration")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "keyword", "Search mode sent with each query")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Result limit sent with each query")
	cmd.Flags().StringArrayVarP(&opts.queries, "query", "q", nil, "Query to send (repeatable; defaults to a built-in set)")
	return cmd
}

// loadReport summarizes a load test run.
type loadReport struct {
	Duration  time.Duration
	Total     int64
	Succeeded int64
	Failed    int64
	Latencies []time.Duration
	Statuses  map[int]int64
}

type loadRecorder struct {
	mu     sync.Mutex
	report loadReport
}

func (r *loadRecorder) record(latency time.Duration, status int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Total++
	if err != nil {
		r.report.Failed++
		return
	}
	if status >= 200 && status < 300 {
		r.report.Succeeded++
	} else {
		r.report.Failed++
	}
	r.report.Latencies = append(r.report.Latencies, latency)
	r.report.Statuses[status]++
}

func runLoadTest(ctx context.Context, opts loadTestOptions) (*loadReport, error) {
	if opts.concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", opts.concurrency)
	}
	queries := opts.queries
	if len(queries) == 0 {
		queries = defaultLoadQueries
	}
	base, err := url.Parse(opts.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", opts.baseURL, err)
	}
	base = base.JoinPath("/api/v1/search")

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	rec := &loadRecorder{report: loadReport{Statuses: make(map[int]int64)}}
	start := time.Now()
	var wg sync.WaitGroup
	for worker := range opts.concurrency {
		wg.Go(func() {
			for i := worker; ctx.Err() == nil; i++ {
				u := *base
				u.RawQuery = url.Values{
					"q":     {queries[i%len(queries)]},
					"mode":  {opts.mode},
					"limit": {fmt.Sprint(opts.limit)},
				}.Encode()
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
				if err != nil {
					rec.record(0, 0, err)
					return
				}
				sent := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						rec.record(time.Since(sent), 0, err)
					}
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				rec.record(time.Since(sent), resp.StatusCode, nil)
			}
		})
	}
	wg.Wait()

	report := rec.report
	report.Duration = time.Since(start)
	slices.Sort(report.Latencies)
	return &report, nil
}

func (r *loadReport) Print(w io.Writer) {
	fmt.Fprintf(w, "requests:   %d\n", r.Total)
	fmt.Fprintf(w, "succeeded:  %d\n", r.Succeeded)
	fmt.Fprintf(w, "failed:     %d\n", r.Failed)
	if r.Total > 0 && r.Duration > 0 {
		fmt.Fprintf(w, "error rate: %.2f%%\n", float64(r.Failed)/float64(r.Total)*100)
		fmt.Fprintf(w, "throughput: %.1f req/s\n", float64(r.Total)/r.Duration.Seconds())
	}
	if n := len(r.Latencies); n > 0 {
		var sum time.Duration
		for _, l := range r.Latencies {
			sum += l
		}
		fmt.Fprintln(w, "\nlatency:")
		fmt.Fprintf(w, "  min %s  avg %s  max %s\n", r.Latencies[0], sum/time.Duration(n), r.Latencies[n-1])
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(w, "  p%-3.0f %s\n", p, percentile(r.Latencies, p))
		}
	}
	if len(r.Statuses) > 0 {
		codes := make([]int, 0, len(r.Statuses))
		for code := range r.Statuses {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		fmt.Fprintln(w, "\nstatus codes:")
		for _, code := range codes {
			fmt.Fprintf(w, "  %d: %d\n", code, r.Statuses[code])
		}
	}
}

// percentile picks the nearest-rank percentile p of sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
