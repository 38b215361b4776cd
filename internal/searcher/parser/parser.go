// Package parser turns boolean query lexemes into an expression tree using
// shunting-yard. NOT binds tightest and is a right-associative prefix
// operator; AND binds tighter than OR and both are left-associative.
// Chains of the same binary operator flatten into one n-ary node.
package parser

import (
	"errors"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
)

// Operator is a boolean operator.
type Operator int

const (
	And Operator = iota
	Or
	Not
)

func (o Operator) String() string {
	switch o {
	case And:
		return "AND"
	case Or:
		return "OR"
	case Not:
		return "NOT"
	default:
		return "?"
	}
}

func (o Operator) precedence() int {
	switch o {
	case Not:
		return 3
	case And:
		return 2
	default:
		return 1
	}
}

func operatorOf(lexeme string) (Operator, bool) {
	switch lexeme {
	case "AND":
		return And, true
	case "OR":
		return Or, true
	case "NOT":
		return Not, true
	}
	return 0, false
}

// Node is either a Term or an *Expression.
type Node interface {
	String() string
	node()
}

// Term is a leaf of the tree.
type Term string

func (t Term) String() string { return string(t) }
func (Term) node()            {}

// Expression is an operator node. NOT has exactly one operand.
type Expression struct {
	Op       Operator
	Operands []Node
}

func (*Expression) node() {}

// String renders the canonical prefix form, e.g. OR(a, AND(b, c)).
func (e *Expression) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expression) write(b *strings.Builder) {
	b.WriteString(e.Op.String())
	b.WriteByte('(')
	for i, op := range e.Operands {
		if i > 0 {
			b.WriteString(", ")
		}
		if sub, ok := op.(*Expression); ok {
			sub.write(b)
			continue
		}
		b.WriteString(op.String())
	}
	b.WriteByte(')')
}

// Parse errors. Messages are shown to users verbatim.
var (
	ErrMissingOpenParen   = errors.New("Mismatched parentheses: missing '('")
	ErrMissingCloseParen  = errors.New("Mismatched parentheses: missing ')'")
	ErrMissingLeftOperand = errors.New("cannot appear here (missing left operand)")
	ErrMisplacedNot       = errors.New("NOT must appear where an operand is expected")
	ErrUnexpectedEnd      = errors.New("Expression ends unexpectedly (missing operand)")
)

// ParseError wraps one of the parse sentinels with the offending lexeme and
// its index. It also matches errors.ErrInvalidQuery.
type ParseError struct {
	Err    error
	Lexeme string
	Index  int
}

func (e *ParseError) Error() string {
	if e.Err == ErrMissingLeftOperand {
		return e.Lexeme + " " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() []error {
	return []error{e.Err, apperrors.ErrInvalidQuery}
}

// Parse builds the expression for lexemes, which must already carry
// uppercase operators. A lone term yields AND(term).
func Parse(lexemes []string) (*Expression, error) {
	postfix, err := toPostfix(lexemes)
	if err != nil {
		return nil, err
	}
	return build(postfix)
}

// item is a postfix element: a term, or an operator when isOp is set.
type item struct {
	term string
	op   Operator
	isOp bool
}

func toPostfix(lexemes []string) ([]item, error) {
	var (
		out []item
		// ops holds operators and "(" markers, the latter with paren set.
		ops           []stackEntry
		expectOperand = true
	)
	fail := func(err error, i int) ([]item, error) {
		lx := ""
		if i < len(lexemes) {
			lx = lexemes[i]
		}
		return nil, &ParseError{Err: err, Lexeme: lx, Index: i}
	}

	for i, lx := range lexemes {
		switch lx {
		case "(":
			ops = append(ops, stackEntry{paren: true})
			expectOperand = true
			continue
		case ")":
			if len(ops) == 0 {
				return fail(ErrMissingOpenParen, i)
			}
			if expectOperand {
				return fail(ErrUnexpectedEnd, i)
			}
			for len(ops) > 0 && !ops[len(ops)-1].paren {
				out = append(out, item{op: ops[len(ops)-1].op, isOp: true})
				ops = ops[:len(ops)-1]
			}
			if len(ops) == 0 {
				return fail(ErrMissingOpenParen, i)
			}
			ops = ops[:len(ops)-1]
			expectOperand = false
			continue
		}

		op, isOp := operatorOf(lx)
		if !isOp {
			out = append(out, item{term: lx})
			expectOperand = false
			continue
		}
		if op == Not {
			if !expectOperand {
				return fail(ErrMisplacedNot, i)
			}
		} else {
			if expectOperand {
				return fail(ErrMissingLeftOperand, i)
			}
			expectOperand = true
		}
		for len(ops) > 0 && !ops[len(ops)-1].paren {
			top := ops[len(ops)-1].op
			// NOT is right-associative, so an equal-precedence NOT stays.
			if top.precedence() < op.precedence() || (top.precedence() == op.precedence() && op == Not) {
				break
			}
			out = append(out, item{op: top, isOp: true})
			ops = ops[:len(ops)-1]
		}
		ops = append(ops, stackEntry{op: op})
	}

	if expectOperand {
		return fail(ErrUnexpectedEnd, len(lexemes))
	}
	for len(ops) > 0 {
		top := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if top.paren {
			return fail(ErrMissingCloseParen, len(lexemes))
		}
		out = append(out, item{op: top.op, isOp: true})
	}
	return out, nil
}

type stackEntry struct {
	op    Operator
	paren bool
}

func build(postfix []item) (*Expression, error) {
	var stack []Node
	pop := func() (Node, bool) {
		if len(stack) == 0 {
			return nil, false
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return n, true
	}
	malformed := func() (*Expression, error) {
		return nil, &ParseError{Err: ErrUnexpectedEnd, Index: len(postfix)}
	}

	for _, it := range postfix {
		if !it.isOp {
			stack = append(stack, Term(it.term))
			continue
		}
		if it.op == Not {
			operand, ok := pop()
			if !ok {
				return malformed()
			}
			stack = append(stack, &Expression{Op: Not, Operands: []Node{operand}})
			continue
		}
		right, okR := pop()
		left, okL := pop()
		if !okR || !okL {
			return malformed()
		}
		operands := make([]Node, 0, 2)
		operands = flattenInto(it.op, left, operands)
		operands = flattenInto(it.op, right, operands)
		stack = append(stack, &Expression{Op: it.op, Operands: operands})
	}

	if len(stack) != 1 {
		return malformed()
	}
	switch root := stack[0].(type) {
	case *Expression:
		return root, nil
	default:
		return &Expression{Op: And, Operands: []Node{root}}, nil
	}
}

func flattenInto(op Operator, child Node, acc []Node) []Node {
	if sub, ok := child.(*Expression); ok && sub.Op == op && op != Not {
		return append(acc, sub.Operands...)
	}
	return append(acc, child)
}
