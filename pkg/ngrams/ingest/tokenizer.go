package ingest

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"unicode/utf8"

	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
)

// Tokenizer turns text into tokens using a token-boundary rule: a regular
// expression matching exactly one token span.
type Tokenizer struct {
	re *regexp.Regexp
}

// NewTokenizer compiles pattern into a tokenizer
func NewTokenizer(pattern string) (*Tokenizer, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty token pattern: %w", internalerr.ErrInvalidConfig)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile token pattern %q: %v: %w", pattern, err, internalerr.ErrInvalidConfig)
	}
	return &Tokenizer{re: re}, nil
}

// MustTokenizer is like NewTokenizer but panics on an invalid pattern.
func MustTokenizer(pattern string) *Tokenizer {
	t, err := NewTokenizer(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// Pattern returns the source of the token-boundary rule
func (t *Tokenizer) Pattern() string {
	return t.re.String()
}

// Tokens yields the non-overlapping matches of the rule in text, left to
// right, finding each match only when the previous one has been consumed.
// Empty matches are never yielded. The pattern is matched against the
// remaining text, so ^ and \b anchor at the end of the previous token.
func (t *Tokenizer) Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		pos := 0
		for pos <= len(text) {
			loc := t.re.FindStringIndex(text[pos:])
			if loc == nil {
				return
			}
			start, end := pos+loc[0], pos+loc[1]
			if start == end {
				_, size := utf8.DecodeRuneInString(text[end:])
				if size == 0 {
					return
				}
				pos = end + size
				continue
			}
			if !yield(text[start:end]) {
				return
			}
			pos = end
		}
	}
}

// Tokenize collects all tokens of text into a slice
func (t *Tokenizer) Tokenize(text string) []string {
	return slices.Collect(t.Tokens(text))
}
