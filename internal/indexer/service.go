// Package indexer runs the per-document ingestion pipeline: read lines,
// tokenize, normalize in batches, and write postings to the store.
package indexer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/tracing"
)

// ErrNotRegular is returned for paths that are not regular files.
var ErrNotRegular = errors.New("not a regular file")

// Service indexes files into a store.
type Service struct {
	st     store.Store
	norm   *normalizer.Normalizer
	cfg    config.IndexerConfig
	logger *slog.Logger
}

func NewService(st store.Store, norm *normalizer.Normalizer, cfg config.IndexerConfig) *Service {
	if cfg.NormalizeBatchSize < 1 {
		cfg.NormalizeBatchSize = 200
	}
	if cfg.WriteBatchSize < 1 {
		cfg.WriteBatchSize = 200
	}
	return &Service{
		st:     st,
		norm:   norm,
		cfg:    cfg,
		logger: slog.Default().With("component", "indexer"),
	}
}

// IndexFile indexes the file at path under docID. Re-indexing a docID
// replaces its previous postings.
func (s *Service) IndexFile(ctx context.Context, path, docID string) error {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("indexing %s: %w", path, ErrNotRegular)
	}

	ctx, span := tracing.Start(ctx, "index_file")
	span.SetAttr("doc_id", docID)
	defer func() {
		span.End()
		span.Log(ctx, s.logger, slog.LevelDebug)
	}()

	_, step := tracing.Start(ctx, "register")
	err = s.register(ctx, path, docID)
	step.End()
	if err != nil {
		return err
	}
	_, step = tracing.Start(ctx, "write_postings")
	written, flushes, err := s.index(ctx, f, docID)
	step.SetAttr("postings", written)
	step.SetAttr("flushes", flushes)
	step.End()
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	s.logger.Info("document indexed",
		"doc_id", docID,
		"path", path,
		"postings", written,
		"duration", time.Since(start),
	)
	return nil
}

// register records the path and counts the document if it is new.
func (s *Service) register(ctx context.Context, path, docID string) error {
	existed, err := s.st.Swap(ctx, store.DocPathKey(docID), path)
	if err != nil {
		return fmt.Errorf("registering %s: %w", docID, err)
	}
	if !existed {
		if _, err := s.st.Incr(ctx, store.TotalDocsKey); err != nil {
			return fmt.Errorf("counting %s: %w", docID, err)
		}
		return nil
	}
	purged, err := index.Purge(ctx, s.st, docID)
	if err != nil {
		return err
	}
	s.logger.Debug("previous postings purged", "doc_id", docID, "lemmas", purged)
	return nil
}

// index streams r into postings for docID and returns the number written
// and the store round trips it took.
func (s *Service) index(ctx context.Context, r io.Reader, docID string) (written, flushes int, err error) {
	var (
		stream tokenizer.Stream
		batch  = make([]tokenizer.Token, 0, s.cfg.NormalizeBatchSize)
		w      = index.NewWriter(s.st, docID, s.cfg.WriteBatchSize)
	)
	drain := func() error {
		if len(batch) == 0 {
			return nil
		}
		normalized, err := s.norm.NormalizeTokens(ctx, batch)
		if err != nil {
			return err
		}
		batch = batch[:0]
		for _, tok := range normalized {
			if err := w.Add(ctx, tok); err != nil {
				return err
			}
		}
		return nil
	}

	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return 0, 0, fmt.Errorf("reading: %w", readErr)
		}
		if line != "" || readErr == nil {
			for _, tok := range stream.Line(strings.TrimRight(line, "\r\n")) {
				batch = append(batch, tok)
				if len(batch) >= s.cfg.NormalizeBatchSize {
					if err := drain(); err != nil {
						return 0, 0, err
					}
				}
			}
		}
		if readErr != nil {
			break
		}
	}
	if err := drain(); err != nil {
		return 0, 0, err
	}
	if err := w.Finish(ctx); err != nil {
		return 0, 0, err
	}
	return w.Written(), w.Flushes(), nil
}
