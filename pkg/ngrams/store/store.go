package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
)

// Store persists corpus dictionaries together with the parameters they were built with
type Store interface {
	Close() error

	// SaveDictionary replaces the stored dictionary of d.Corpus
	SaveDictionary(ctx context.Context, d Dictionary) error
	GetDictionary(ctx context.Context, corpus string) (Dictionary, bool, error)
	Lookup(ctx context.Context, corpus, ngram string) (int64, bool, error)
	Top(ctx context.Context, corpus string, k int) ([]freq.Entry, error)

	// Corpora lists the run metadata of every stored dictionary, by corpus name
	Corpora(ctx context.Context) ([]Run, error)
}

// Run identifies one aggregation of a corpus
type Run struct {
	ID              string
	Corpus          string
	N               int
	TokenRule       string
	InputThreshold  int64
	OutputThreshold int64
	Documents       int
	CreatedAt       time.Time
}

// Dictionary is a merged corpus table plus the run that produced it
type Dictionary struct {
	Run
	Counts freq.Table
}

var (
	idMu    sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a new time-ordered run identifier
func NewRunID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
