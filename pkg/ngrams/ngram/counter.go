package ngram

import (
	"fmt"
	"iter"

	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
	"github.com/pverkind/OCRngrams/pkg/ngrams/ingest"
	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
)

// Count slides a window of n tokens over tokens and increments acc once for
// every full window. The accumulator is owned by the caller and may be
// shared across calls to keep a running total for one document.
// It returns the number of n-grams emitted, max(0, L-n+1) for L tokens.
func Count(tokens iter.Seq[string], n int, acc freq.Table) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("window size %d: %w", n, internalerr.ErrInvalidInput)
	}
	if acc == nil {
		return 0, fmt.Errorf("nil accumulator: %w", internalerr.ErrInvalidInput)
	}

	w := NewWindow(n)
	emitted := 0
	for tok := range tokens {
		key, ok := w.Push(tok)
		if !ok {
			continue
		}
		acc.Inc(key)
		emitted++
	}
	return emitted, nil
}

// CountText tokenizes text with tok and counts its n-grams into acc.
func CountText(text string, n int, tok *ingest.Tokenizer, acc freq.Table) (int, error) {
	if tok == nil {
		return 0, fmt.Errorf("nil tokenizer: %w", internalerr.ErrInvalidInput)
	}
	return Count(tok.Tokens(text), n, acc)
}
