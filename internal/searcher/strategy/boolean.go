package strategy

import (
	"context"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/parser"
)

// Boolean evaluates terms as a boolean expression. Matches score 1.
//
// NOT is the complement against a universe: the union of the documents of
// every term not under a NOT, or of every term when the query is purely
// negative.
type Boolean struct{}

func (Boolean) Score(ctx context.Context, terms []string, docs docinfo.Service) (map[string]float64, error) {
	if len(terms) == 0 {
		return map[string]float64{}, nil
	}
	expr, err := parser.Parse(terms)
	if err != nil {
		return nil, err
	}
	ev := &evaluator{ctx: ctx, docs: docs, cache: make(map[string]docSet)}
	if err := ev.buildUniverse(expr); err != nil {
		return nil, err
	}
	matched, err := ev.eval(expr)
	if err != nil {
		return nil, err
	}
	return matched.scores(), nil
}

// evaluator fetches each distinct term at most once per query.
type evaluator struct {
	ctx      context.Context
	docs     docinfo.Service
	cache    map[string]docSet
	universe docSet
}

func (ev *evaluator) term(t string) (docSet, error) {
	if s, ok := ev.cache[t]; ok {
		return s, nil
	}
	ids, err := ev.docs.DocIDsForTerm(ev.ctx, t)
	if err != nil {
		return nil, err
	}
	s := newDocSet(ids)
	ev.cache[t] = s
	return s, nil
}

func (ev *evaluator) buildUniverse(expr *parser.Expression) error {
	var positive, all []string
	var walk func(n parser.Node, negated bool)
	walk = func(n parser.Node, negated bool) {
		switch n := n.(type) {
		case parser.Term:
			t := string(n)
			if !slices.Contains(all, t) {
				all = append(all, t)
			}
			if !negated && !slices.Contains(positive, t) {
				positive = append(positive, t)
			}
		case *parser.Expression:
			for _, op := range n.Operands {
				walk(op, negated || n.Op == parser.Not)
			}
		}
	}
	walk(expr, false)

	seeds := positive
	if len(seeds) == 0 {
		seeds = all
	}
	ev.universe = make(docSet)
	for _, t := range seeds {
		s, err := ev.term(t)
		if err != nil {
			return err
		}
		for id := range s {
			ev.universe[id] = struct{}{}
		}
	}
	return nil
}

func (ev *evaluator) eval(n parser.Node) (docSet, error) {
	switch n := n.(type) {
	case parser.Term:
		return ev.term(string(n))
	case *parser.Expression:
		switch n.Op {
		case parser.Not:
			child, err := ev.eval(n.Operands[0])
			if err != nil {
				return nil, err
			}
			out := make(docSet)
			for id := range ev.universe {
				if _, excluded := child[id]; !excluded {
					out[id] = struct{}{}
				}
			}
			return out, nil
		case parser.And:
			return ev.and(n.Operands)
		default:
			out := make(docSet)
			for _, op := range n.Operands {
				s, err := ev.eval(op)
				if err != nil {
					return nil, err
				}
				for id := range s {
					out[id] = struct{}{}
				}
			}
			return out, nil
		}
	}
	return docSet{}, nil
}

// and intersects operand results left to right, stopping at the first
// empty intermediate result.
func (ev *evaluator) and(operands []parser.Node) (docSet, error) {
	if len(operands) == 0 {
		return docSet{}, nil
	}
	first, err := ev.eval(operands[0])
	if err != nil {
		return nil, err
	}
	acc := make(docSet, len(first))
	for id := range first {
		acc[id] = struct{}{}
	}
	for _, op := range operands[1:] {
		if len(acc) == 0 {
			break
		}
		next, err := ev.eval(op)
		if err != nil {
			return nil, err
		}
		for id := range acc {
			if _, ok := next[id]; !ok {
				delete(acc, id)
			}
		}
	}
	return acc, nil
}
