// Package lexicon loads lemma dictionaries and stopword lists into the
// store. Entries are written in pipelined batches.
package lexicon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/async"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
)

const (
	fieldSeparator   = ";"
	placeholder      = "_"
	defaultBatchSize = 1000
	maxLineBytes     = 1 << 20
)

// Kind is the format of a dictionary file.
type Kind int

const (
	// Lemmas files hold one "term;lemma" pair per line.
	Lemmas Kind = iota
	// Stopwords files hold one word per line.
	Stopwords
)

func (k Kind) String() string {
	switch k {
	case Lemmas:
		return "lemmas"
	case Stopwords:
		return "stopwords"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// File is a dictionary file to load.
type File struct {
	Path string
	Kind Kind
}

// Result counts the lines of one load.
type Result struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Loader writes dictionary entries for one language.
type Loader struct {
	st        store.Store
	lang      string
	batchSize int
	logger    *slog.Logger
}

// NewLoader returns a Loader for lang flushing every batchSize entries.
func NewLoader(st store.Store, lang string, batchSize int) *Loader {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	return &Loader{
		st:        st,
		lang:      lang,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "lexicon", "lang", lang),
	}
}

// LoadLemmas reads "term;lemma" lines. Lines with fewer than two fields, an
// empty or "_" field, or a term equal to its lemma are skipped.
func (l *Loader) LoadLemmas(ctx context.Context, r io.Reader) (Result, error) {
	return l.load(ctx, r, func(line string) (store.Op, bool) {
		fields := strings.Split(line, fieldSeparator)
		if len(fields) < 2 {
			return store.Op{}, false
		}
		term := strings.ToLower(strings.TrimSpace(fields[0]))
		lemma := strings.ToLower(strings.TrimSpace(fields[1]))
		if term == "" || lemma == "" || term == placeholder || lemma == placeholder || term == lemma {
			return store.Op{}, false
		}
		return store.Op{Kind: store.OpSet, Key: store.LemmaKey(l.lang, term), Value: lemma}, true
	})
}

// LoadStopwords reads one stopword per line, skipping blank lines.
func (l *Loader) LoadStopwords(ctx context.Context, r io.Reader) (Result, error) {
	return l.load(ctx, r, func(line string) (store.Op, bool) {
		word := strings.ToLower(strings.TrimSpace(line))
		if word == "" {
			return store.Op{}, false
		}
		return store.Op{Kind: store.OpSet, Key: store.StopwordKey(l.lang, word), Value: "1"}, true
	})
}

// LoadFile opens f.Path and loads it according to f.Kind.
func (l *Loader) LoadFile(ctx context.Context, f File) (Result, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s dictionary: %w", f.Kind, err)
	}
	defer fh.Close()

	start := time.Now()
	var res Result
	switch f.Kind {
	case Lemmas:
		res, err = l.LoadLemmas(ctx, fh)
	case Stopwords:
		res, err = l.LoadStopwords(ctx, fh)
	default:
		return Result{}, fmt.Errorf("loading %s: unsupported dictionary %s", f.Path, f.Kind)
	}
	if err != nil {
		return res, fmt.Errorf("loading %s: %w", f.Path, err)
	}
	l.logger.Info("dictionary loaded",
		"path", f.Path,
		"kind", f.Kind.String(),
		"loaded", res.Loaded,
		"skipped", res.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// LoadFiles loads files on up to concurrency goroutines and returns the
// result per path. Every file is attempted; failures are joined.
func (l *Loader) LoadFiles(ctx context.Context, files []File, concurrency int) (map[string]Result, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(files))
		errs    []error
	)
	q := async.New(concurrency)
	for _, f := range files {
		q.AddTasks(func() error {
			res, err := l.LoadFile(ctx, f)
			mu.Lock()
			defer mu.Unlock()
			results[f.Path] = res
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	if err := q.Wait(ctx); err != nil {
		// Tasks may still be writing to results.
		return nil, err
	}
	return results, errors.Join(errs...)
}

func (l *Loader) load(ctx context.Context, r io.Reader, parse func(line string) (store.Op, bool)) (Result, error) {
	var res Result
	batch := make([]store.Op, 0, l.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.st.Exec(ctx, batch); err != nil {
			return fmt.Errorf("writing %d entries: %w", len(batch), err)
		}
		res.Loaded += len(batch)
		batch = batch[:0]
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		op, ok := parse(strings.TrimRight(sc.Text(), "\r"))
		if !ok {
			res.Skipped++
			continue
		}
		batch = append(batch, op)
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("reading dictionary: %w", err)
	}
	return res, flush()
}
