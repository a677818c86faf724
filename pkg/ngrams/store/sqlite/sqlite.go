package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
	"github.com/pverkind/OCRngrams/pkg/ngrams/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS dictionaries (
	corpus TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	n INTEGER NOT NULL,
	token_rule TEXT,
	input_threshold INTEGER NOT NULL DEFAULT 1,
	output_threshold INTEGER NOT NULL DEFAULT 1,
	documents INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dictionary_entries (
	corpus TEXT NOT NULL,
	ngram TEXT NOT NULL,
	count INTEGER NOT NULL CHECK(count >= 0),
	PRIMARY KEY(corpus, ngram),
	FOREIGN KEY(corpus) REFERENCES dictionaries(corpus) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_dictionary_entries_count ON dictionary_entries(corpus, count DESC);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveDictionary replaces the dictionary of a corpus in one transaction
func (s *sqliteStore) SaveDictionary(ctx context.Context, d store.Dictionary) error {
	if d.Corpus == "" {
		return fmt.Errorf("save dictionary: empty corpus name: %w", internalerr.ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = store.NewRunID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO dictionaries (corpus, run_id, n, token_rule, input_threshold, output_threshold, documents, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(corpus) DO UPDATE SET
	run_id=excluded.run_id,
	n=excluded.n,
	token_rule=excluded.token_rule,
	input_threshold=excluded.input_threshold,
	output_threshold=excluded.output_threshold,
	documents=excluded.documents,
	created_at=excluded.created_at;
`
	_, err = tx.ExecContext(ctx, stmt,
		d.Corpus,
		d.ID,
		d.N,
		d.TokenRule,
		d.InputThreshold,
		d.OutputThreshold,
		d.Documents,
		d.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	if err := replaceEntries(ctx, tx, d.Corpus, d.Counts); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceEntries(ctx context.Context, tx *sql.Tx, corpus string, counts freq.Table) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM dictionary_entries WHERE corpus=?`, corpus); err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dictionary_entries (corpus, ngram, count) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, key := range counts.Keys() {
		if _, err := stmt.ExecContext(ctx, corpus, key, counts[key]); err != nil {
			return err
		}
	}
	return nil
}

// GetDictionary loads the dictionary of a corpus
func (s *sqliteStore) GetDictionary(ctx context.Context, corpus string) (store.Dictionary, bool, error) {
	run, found, err := s.getRun(ctx, corpus)
	if err != nil || !found {
		return store.Dictionary{}, found, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ngram, count FROM dictionary_entries WHERE corpus=?`, corpus)
	if err != nil {
		return store.Dictionary{}, false, err
	}
	defer rows.Close()

	counts := freq.New()
	for rows.Next() {
		var (
			ngram string
			count int64
		)
		if err := rows.Scan(&ngram, &count); err != nil {
			return store.Dictionary{}, false, err
		}
		counts[ngram] = count
	}
	if err := rows.Err(); err != nil {
		return store.Dictionary{}, false, err
	}
	return store.Dictionary{Run: run, Counts: counts}, true, nil
}

func (s *sqliteStore) getRun(ctx context.Context, corpus string) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT corpus, run_id, n, token_rule, input_threshold, output_threshold, documents, created_at
FROM dictionaries WHERE corpus=?`, corpus)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return run, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (store.Run, error) {
	var (
		r         store.Run
		rule      sql.NullString
		createdAt string
	)
	if err := row.Scan(&r.Corpus, &r.ID, &r.N, &rule, &r.InputThreshold, &r.OutputThreshold, &r.Documents, &createdAt); err != nil {
		return store.Run{}, err
	}
	r.TokenRule = rule.String
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return store.Run{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	r.CreatedAt = t
	return r, nil
}

// Lookup returns the count of one n-gram in a corpus
func (s *sqliteStore) Lookup(ctx context.Context, corpus, ngram string) (int64, bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT count FROM dictionary_entries WHERE corpus=? AND ngram=?`, corpus, ngram).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// Top returns the k most frequent n-grams of a corpus; k <= 0 returns all
func (s *sqliteStore) Top(ctx context.Context, corpus string, k int) ([]freq.Entry, error) {
	limit := k
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT ngram, count FROM dictionary_entries
WHERE corpus=?
ORDER BY count DESC, ngram ASC
LIMIT ?`, corpus, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []freq.Entry
	for rows.Next() {
		var e freq.Entry
		if err := rows.Scan(&e.Key, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Corpora lists every stored dictionary's run, ordered by corpus name
func (s *sqliteStore) Corpora(ctx context.Context) ([]store.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT corpus, run_id, n, token_rule, input_threshold, output_threshold, documents, created_at
FROM dictionaries ORDER BY corpus`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
