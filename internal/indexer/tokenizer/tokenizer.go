// Package tokenizer splits text into word tokens. Free text is tokenized
// line by line with document-wide word ordinals; boolean queries are split
// into terms, parentheses and operator keywords.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
)

// Boolean operator lexemes.
const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpNot = "NOT"
)

// Token is a word occurrence in a document.
type Token struct {
	Term string
	// Line is the 1-based source line.
	Line int
	// Position is the word ordinal within the whole document, starting at 1.
	Position int
	// Length is the term length in runes.
	Length int
}

// Stream tokenizes the lines of one document in order. The zero value is
// ready to use; use a fresh Stream per document.
type Stream struct {
	line int
	pos  int
}

// Line tokenizes the next line of the document.
func (s *Stream) Line(text string) []Token {
	s.line++
	var tokens []Token
	forEachWord(text, func(word string) {
		s.pos++
		tokens = append(tokens, Token{
			Term:     word,
			Line:     s.line,
			Position: s.pos,
			Length:   utf8.RuneCountInString(word),
		})
	})
	return tokens
}

// Tokenize returns the word runs of text, ignoring everything else.
func Tokenize(text string) []string {
	var words []string
	forEachWord(text, func(word string) {
		words = append(words, word)
	})
	return words
}

// IsWordRune reports whether r belongs to a word run.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// IsOperator reports whether lexeme is an operator keyword, ignoring case.
func IsOperator(lexeme string) bool {
	switch strings.ToUpper(lexeme) {
	case OpAnd, OpOr, OpNot:
		return true
	}
	return false
}

// IsParen reports whether lexeme is a parenthesis.
func IsParen(lexeme string) bool {
	return lexeme == "(" || lexeme == ")"
}

// LexError reports input that is neither whitespace, a parenthesis nor a
// word run.
type LexError struct {
	Input string
	// Offset is the rune offset of Input within the query.
	Offset int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("unexpected input: %q at position %d", e.Input, e.Offset)
}

func (e *LexError) Unwrap() error { return apperrors.ErrInvalidQuery }

// Lexemes splits a boolean query into terms, "(", ")" and operator
// keywords. Operators are uppercased; terms keep their case.
func Lexemes(query string) ([]string, error) {
	var out []string
	runes := []rune(query)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			out = append(out, string(r))
			i++
		case IsWordRune(r):
			j := i
			for j < len(runes) && IsWordRune(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			if IsOperator(word) {
				word = strings.ToUpper(word)
			}
			out = append(out, word)
			i = j
		default:
			j := i
			for j < len(runes) && !recognized(runes[j]) {
				j++
			}
			return nil, &LexError{Input: string(runes[i:j]), Offset: i}
		}
	}
	return out, nil
}

func recognized(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || IsWordRune(r)
}

// forEachWord calls fn with every maximal word run in text.
func forEachWord(text string, fn func(word string)) {
	start := -1
	for i, r := range text {
		if IsWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fn(text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		fn(text[start:])
	}
}
