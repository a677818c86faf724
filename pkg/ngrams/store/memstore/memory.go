package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
	"github.com/pverkind/OCRngrams/pkg/ngrams/store"
)

// Store is an in-memory implementation of store.Store for tests and dry runs.
type Store struct {
	mu   sync.RWMutex
	dict map[string]store.Dictionary
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{dict: make(map[string]store.Dictionary)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveDictionary implements store.Store.
func (s *Store) SaveDictionary(ctx context.Context, d store.Dictionary) error {
	if d.Corpus == "" {
		return fmt.Errorf("save dictionary: empty corpus name: %w", internalerr.ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = store.NewRunID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d.Counts = d.Counts.Clone()
	s.dict[d.Corpus] = d
	return nil
}

// GetDictionary implements store.Store.
func (s *Store) GetDictionary(ctx context.Context, corpus string) (store.Dictionary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dict[corpus]
	if !ok {
		return store.Dictionary{}, false, nil
	}
	d.Counts = d.Counts.Clone()
	return d, true, nil
}

// Lookup implements store.Store.
func (s *Store) Lookup(ctx context.Context, corpus, ngram string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.dict[corpus].Counts[ngram]
	return c, ok, nil
}

// Top implements store.Store.
func (s *Store) Top(ctx context.Context, corpus string, k int) ([]freq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dict[corpus].Counts.Top(k), nil
}

// Corpora implements store.Store.
func (s *Store) Corpora(ctx context.Context) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]store.Run, 0, len(s.dict))
	for _, d := range s.dict {
		runs = append(runs, d.Run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Corpus < runs[j].Corpus })
	return runs, nil
}
