package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
)

// Suffix is appended to a document key to form its count file name
const Suffix = "_ngram_count.json"

// Cache stores one frequency table per document in Dir.
type Cache struct {
	Dir string
}

// New creates a cache rooted at dir. The directory is created on first Save.
func New(dir string) *Cache {
	return &Cache{Dir: dir}
}

// Key returns the storage key of a document: its base name without extension.
func Key(docPath string) string {
	base := filepath.Base(docPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileName returns the count file name for a key
func FileName(key string) string {
	return key + Suffix
}

// Path returns the count file path for a document
func (c *Cache) Path(docPath string) string {
	return filepath.Join(c.Dir, FileName(Key(docPath)))
}

// Exists reports whether a count file for the document is present
func (c *Cache) Exists(docPath string) (bool, error) {
	info, err := os.Stat(c.Path(docPath))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory: %w", c.Path(docPath), internalerr.ErrCorruptCache)
	}
	return true, nil
}

// Load reads the cached table of a document
func (c *Cache) Load(docPath string) (freq.Table, error) {
	return ReadTable(c.Path(docPath))
}

// Save replaces the cached table of a document
func (c *Cache) Save(docPath string, t freq.Table) error {
	return WriteTable(c.Path(docPath), t)
}

// List returns the paths of all count files in Dir, sorted
func (c *Cache) List() ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("list %s: %w", c.Dir, internalerr.ErrNotFound)
		}
		return nil, fmt.Errorf("list %s: %w", c.Dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Suffix) {
			continue
		}
		paths = append(paths, filepath.Join(c.Dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadTable loads a JSON object of n-gram counts.
// Anything but an object of non-negative integers is reported as corrupt.
func ReadTable(path string) (freq.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, internalerr.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	var counts map[string]int64
	if err := dec.Decode(&counts); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", path, err, internalerr.ErrCorruptCache)
	}
	if counts == nil {
		return nil, fmt.Errorf("decode %s: not a JSON object: %w", path, internalerr.ErrCorruptCache)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode %s: trailing data: %w", path, internalerr.ErrCorruptCache)
	}
	for k, v := range counts {
		if v < 0 {
			return nil, fmt.Errorf("decode %s: negative count %d for %q: %w", path, v, k, internalerr.ErrCorruptCache)
		}
	}
	return freq.Table(counts), nil
}

// WriteTable stores t as an indented JSON object with sorted keys.
// Non-ASCII text is written as is. The file is written to a temporary
// name and renamed into place; parent directories are created.
func WriteTable(path string, t freq.Table) error {
	if t == nil {
		t = freq.New()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]int64(t)); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
