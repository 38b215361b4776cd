// Package strategy scores documents for normalized query terms. Each
// search mode has one Strategy; For selects it.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
)

// Mode is a search mode.
type Mode int

const (
	ModeKeyword Mode = iota
	ModePhrase
	ModeBoolean
)

func (m Mode) String() string {
	switch m {
	case ModeKeyword:
		return "keyword"
	case ModePhrase:
		return "phrase"
	case ModeBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a mode name to a Mode. The empty string is keyword.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keyword":
		return ModeKeyword, nil
	case "phrase":
		return ModePhrase, nil
	case "boolean":
		return ModeBoolean, nil
	}
	return 0, fmt.Errorf("%w: %q", apperrors.ErrUnknownMode, s)
}

// Strategy maps docIDs to scores for the normalized terms of one query.
type Strategy interface {
	Score(ctx context.Context, terms []string, docs docinfo.Service) (map[string]float64, error)
}

// For returns the Strategy implementing mode.
func For(mode Mode) (Strategy, error) {
	switch mode {
	case ModeKeyword:
		return Keyword{}, nil
	case ModePhrase:
		return Phrase{}, nil
	case ModeBoolean:
		return Boolean{}, nil
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownMode, mode)
}

type docSet map[string]struct{}

func newDocSet(ids []string) docSet {
	s := make(docSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s docSet) scores() map[string]float64 {
	out := make(map[string]float64, len(s))
	for id := range s {
		out[id] = 1.0
	}
	return out
}
