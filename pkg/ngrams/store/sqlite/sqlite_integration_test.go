package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
	"github.com/pverkind/OCRngrams/pkg/ngrams/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSQLiteIntegrationBasic tests saving and reading back a dictionary
func TestSQLiteIntegrationBasic(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	d := store.Dictionary{
		Run: store.Run{
			Corpus:          "0650AH",
			N:               2,
			TokenRule:       "arabic",
			InputThreshold:  1,
			OutputThreshold: 3,
			Documents:       12,
			CreatedAt:       created,
		},
		Counts: freq.Table{"قال أبو": 7, "أبو بكر": 4},
	}
	if err := st.SaveDictionary(ctx, d); err != nil {
		t.Fatalf("SaveDictionary: %v", err)
	}

	got, found, err := st.GetDictionary(ctx, "0650AH")
	if err != nil {
		t.Fatalf("GetDictionary: %v", err)
	}
	if !found {
		t.Fatal("Dictionary should be found")
	}
	if !got.Counts.Equal(d.Counts) {
		t.Errorf("Counts = %v, want %v", got.Counts, d.Counts)
	}
	if got.ID == "" {
		t.Error("Run ID should be assigned")
	}
	if got.N != 2 || got.TokenRule != "arabic" || got.OutputThreshold != 3 || got.Documents != 12 {
		t.Errorf("Run metadata mismatch: %+v", got.Run)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
}

// TestSQLiteIntegrationReplace tests that saving a corpus again drops old entries
func TestSQLiteIntegrationReplace(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	first := store.Dictionary{Run: store.Run{Corpus: "c", N: 2}, Counts: freq.Table{"old gram": 3}}
	second := store.Dictionary{Run: store.Run{Corpus: "c", N: 2}, Counts: freq.Table{"new gram": 1}}

	if err := st.SaveDictionary(ctx, first); err != nil {
		t.Fatalf("first SaveDictionary: %v", err)
	}
	if err := st.SaveDictionary(ctx, second); err != nil {
		t.Fatalf("second SaveDictionary: %v", err)
	}

	if _, ok, _ := st.Lookup(ctx, "c", "old gram"); ok {
		t.Error("old entries should be replaced, not merged")
	}
	count, ok, err := st.Lookup(ctx, "c", "new gram")
	if err != nil || !ok || count != 1 {
		t.Errorf("Lookup = %d, %v, %v", count, ok, err)
	}
}

func TestSQLiteIntegrationTop(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	counts := freq.Table{"b": 2, "a": 2, "c": 9, "d": 1}
	if err := st.SaveDictionary(ctx, store.Dictionary{Run: store.Run{Corpus: "x", N: 1}, Counts: counts}); err != nil {
		t.Fatalf("SaveDictionary: %v", err)
	}

	top, err := st.Top(ctx, "x", 3)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	want := counts.Top(3)
	if len(top) != len(want) {
		t.Fatalf("Top = %v, want %v", top, want)
	}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("Top[%d] = %v, want %v", i, top[i], want[i])
		}
	}

	all, err := st.Top(ctx, "x", 0)
	if err != nil {
		t.Fatalf("Top(0): %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Top(0) should return all entries, got %d", len(all))
	}
}

func TestSQLiteIntegrationEmptyDictionary(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.SaveDictionary(ctx, store.Dictionary{Run: store.Run{Corpus: "empty", N: 2}}); err != nil {
		t.Fatalf("SaveDictionary: %v", err)
	}
	d, found, err := st.GetDictionary(ctx, "empty")
	if err != nil || !found {
		t.Fatalf("GetDictionary = %v, %v", found, err)
	}
	if len(d.Counts) != 0 {
		t.Errorf("Expected no entries, got %v", d.Counts)
	}
}

func TestSQLiteIntegrationMissing(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	_, found, err := st.GetDictionary(ctx, "nope")
	if err != nil {
		t.Fatalf("GetDictionary: %v", err)
	}
	if found {
		t.Error("unknown corpus should not be found")
	}
	if _, ok, err := st.Lookup(ctx, "nope", "a b"); ok || err != nil {
		t.Errorf("Lookup = %v, %v", ok, err)
	}
}

func TestSQLiteIntegrationCorpora(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	for _, name := range []string{"0700AH", "0650AH"} {
		if err := st.SaveDictionary(ctx, store.Dictionary{Run: store.Run{Corpus: name, N: 2}, Counts: freq.Table{"a b": 1}}); err != nil {
			t.Fatalf("SaveDictionary(%s): %v", name, err)
		}
	}
	runs, err := st.Corpora(ctx)
	if err != nil {
		t.Fatalf("Corpora: %v", err)
	}
	if len(runs) != 2 || runs[0].Corpus != "0650AH" || runs[1].Corpus != "0700AH" {
		t.Errorf("Corpora = %+v", runs)
	}
}

func TestSQLiteIntegrationPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := st.SaveDictionary(ctx, store.Dictionary{Run: store.Run{Corpus: "c", N: 2}, Counts: freq.Table{"a b": 2}}); err != nil {
		t.Fatalf("SaveDictionary: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	c, ok, err := st.Lookup(ctx, "c", "a b")
	if err != nil || !ok || c != 2 {
		t.Errorf("Lookup after reopen = %d, %v, %v", c, ok, err)
	}
}

func TestSQLiteIntegrationEmptyCorpusName(t *testing.T) {
	st := openTestStore(t)
	err := st.SaveDictionary(context.Background(), store.Dictionary{})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
