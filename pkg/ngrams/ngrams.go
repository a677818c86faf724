// Package ngrams builds corpus n-gram frequency dictionaries.
//
// Each document is counted once into a per-document count file
// (<out_dir>/<name>_ngram_count.json); later runs reuse that file unless
// overwrite is requested. A folder of count files is then merged into one
// corpus dictionary under input and output frequency thresholds.
package ngrams

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pverkind/OCRngrams/internal/files"
	"github.com/pverkind/OCRngrams/pkg/ngrams/cache"
	"github.com/pverkind/OCRngrams/pkg/ngrams/config"
	"github.com/pverkind/OCRngrams/pkg/ngrams/corpus"
	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
	"github.com/pverkind/OCRngrams/pkg/ngrams/store"
)

// Builder runs the counting pipeline for one configuration
type Builder struct {
	cfg    config.Config
	comp   *config.Components
	store  store.Store
	logger *log.Logger
}

// Option configures a Builder
type Option func(*Builder)

// WithStore records every corpus dictionary in st after it is written
func WithStore(st store.Store) Option {
	return func(b *Builder) { b.store = st }
}

// WithLogger sets the logger used for progress and warnings
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// New validates cfg and creates a Builder
func New(cfg config.Config, opts ...Option) (*Builder, error) {
	b := &Builder{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	comp, err := config.Build(cfg, b.logger)
	if err != nil {
		return nil, err
	}
	b.comp = comp
	return b, nil
}

// CountFile returns the n-gram table of the document at path.
// If a count file exists in the output directory and overwrite is off, it
// is loaded and the document itself is not read. Otherwise the document
// body is counted and the count file is (re)written.
func (b *Builder) CountFile(ctx context.Context, path string) (freq.Table, error) {
	return b.countFile(ctx, b.comp.Cache, path)
}

func (b *Builder) countFile(ctx context.Context, c *cache.Cache, path string) (freq.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	key := cache.Key(path)

	if !b.cfg.Overwrite {
		ok, err := c.Exists(path)
		if err != nil {
			return nil, err
		}
		if ok {
			t, err := c.Load(path)
			if err != nil {
				return nil, err
			}
			if b.cfg.Verbose {
				b.logger.Printf("loading ngram count from %s took %s", key, time.Since(start))
			}
			return t, nil
		}
	}

	t, err := b.scan(path)
	if err != nil {
		return nil, err
	}
	if err := c.Save(path, t); err != nil {
		return nil, err
	}
	if b.cfg.Verbose {
		b.logger.Printf("counting ngrams in %s took %s", key, time.Since(start))
	}
	return t, nil
}

func (b *Builder) scan(path string) (freq.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", path, err)
	}
	defer f.Close()

	t := freq.New()
	stats, err := b.comp.Segmenter.CountReader(f, t)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", path, err)
	}
	if !stats.HeaderClosed {
		b.logger.Printf("WARNING: header marker %q not found in %s, nothing counted", b.cfg.HeaderMarker, path)
	}
	if b.cfg.Verbose {
		b.logger.Printf("%d lines, %d paragraphs, %d n-grams (%d distinct)", stats.Lines, stats.Paragraphs, stats.NGrams, len(t))
	}
	return t, nil
}

// Join merges the count files in dir into outPath using the configured
// thresholds and records the result under corpusName when a store is set.
func (b *Builder) Join(ctx context.Context, dir, outPath, corpusName string) (corpus.Result, error) {
	res, err := b.comp.Aggregator.Join(ctx, dir, outPath, b.cfg.Thresholds)
	if err != nil {
		return res, err
	}
	if err := b.record(ctx, corpusName, res); err != nil {
		return res, err
	}
	return res, nil
}

func (b *Builder) record(ctx context.Context, corpusName string, res corpus.Result) error {
	if b.store == nil {
		return nil
	}
	err := b.store.SaveDictionary(ctx, store.Dictionary{
		Run: store.Run{
			Corpus:          corpusName,
			N:               b.cfg.N,
			TokenRule:       b.cfg.RuleName(),
			InputThreshold:  res.Thresholds.Input,
			OutputThreshold: res.Thresholds.Output,
			Documents:       res.Documents,
		},
		Counts: res.Table,
	})
	if err != nil {
		return fmt.Errorf("record dictionary %s: %w", corpusName, err)
	}
	return nil
}

// DictionaryPath returns the default corpus dictionary path for folder
func DictionaryPath(folder string) string {
	return cache.FileName(filepath.Base(filepath.Clean(folder)))
}

// FolderError lists the documents that failed while the rest of a folder
// was still aggregated.
type FolderError struct {
	Folder string
	Failed map[string]error
}

func (e *FolderError) Error() string {
	paths := make([]string, 0, len(e.Failed))
	for p := range e.Failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	msgs := make([]string, 0, len(paths))
	for _, p := range paths {
		msgs = append(msgs, e.Failed[p].Error())
	}
	return fmt.Sprintf("%s: %d documents failed: %s", e.Folder, len(e.Failed), strings.Join(msgs, ", "))
}

func (e *FolderError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// CountFolder counts every document found in folder into the configured
// output directory and merges the count files of those documents into
// outPath (DictionaryPath(folder) when empty). Other count files in the
// output directory are not part of the dictionary.
//
// With continue_on_error, failed documents are logged and left out of the
// dictionary, and the result comes back together with a *FolderError.
func (b *Builder) CountFolder(ctx context.Context, folder, outPath string) (corpus.Result, error) {
	if outPath == "" {
		outPath = DictionaryPath(folder)
	}
	name := filepath.Base(filepath.Clean(folder))
	return b.countFolder(ctx, folder, b.comp.Cache, outPath, name)
}

func (b *Builder) countFolder(ctx context.Context, folder string, c *cache.Cache, outPath, name string) (corpus.Result, error) {
	paths, err := files.Discover(folder, files.Options{
		Recursive: b.cfg.Recursive,
		Include:   b.comp.Include,
	})
	if err != nil {
		return corpus.Result{}, err
	}
	b.warnDuplicateKeys(paths)

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return corpus.Result{}, fmt.Errorf("create %s: %w", c.Dir, err)
	}

	failed, err := b.countAll(ctx, c, paths)
	if err != nil {
		return corpus.Result{}, err
	}

	if b.cfg.Verbose {
		b.logger.Printf("combining counts of %d documents from %s", len(paths)-len(failed), folder)
	}
	res, err := b.comp.Aggregator.JoinFiles(ctx, countedFiles(c, paths, failed), outPath, b.cfg.Thresholds)
	if err != nil {
		return res, err
	}
	if err := b.record(ctx, name, res); err != nil {
		return res, err
	}
	if len(failed) > 0 {
		return res, &FolderError{Folder: folder, Failed: failed}
	}
	return res, nil
}

// countedFiles returns the sorted count files of the documents in paths
// that did not fail. A count file shared with a failed document is left out.
func countedFiles(c *cache.Cache, paths []string, failed map[string]error) []string {
	bad := make(map[string]bool, len(failed))
	for p := range failed {
		bad[c.Path(p)] = true
	}
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		cp := c.Path(p)
		if bad[cp] || seen[cp] {
			continue
		}
		seen[cp] = true
		out = append(out, cp)
	}
	sort.Strings(out)
	return out
}

// countAll counts paths with up to cfg.Workers documents in flight.
func (b *Builder) countAll(ctx context.Context, c *cache.Cache, paths []string) (map[string]error, error) {
	workers := b.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		failed = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if b.cfg.Verbose {
				b.logger.Print(filepath.Base(p))
			}
			_, err := b.countFile(gctx, c, p)
			if err == nil {
				return nil
			}
			if !b.cfg.ContinueOnError || errors.Is(err, context.Canceled) {
				return err
			}
			b.logger.Printf("ERROR: %v", err)
			mu.Lock()
			failed[p] = err
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return failed, nil
}

func (b *Builder) warnDuplicateKeys(paths []string) {
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		key := cache.Key(p)
		if prev, ok := seen[key]; ok {
			b.logger.Printf("WARNING: %s and %s share the count file %s", prev, p, cache.FileName(key))
			continue
		}
		seen[key] = p
	}
}

// CountCorpora runs CountFolder for each sub-corpus directory of root.
// Sub-corpus <name> is counted into <outRoot>/<name> and merged into
// <outRoot>/<name>_ngram_count.json. An empty selection processes every
// subdirectory; otherwise only the named ones, in the given order.
func (b *Builder) CountCorpora(ctx context.Context, root, outRoot string, selection []string) ([]corpus.Result, error) {
	names := selection
	if len(names) == 0 {
		var err error
		names, err = files.Subdirs(root)
		if err != nil {
			return nil, err
		}
	}

	var (
		results []corpus.Result
		errs    []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if b.cfg.Verbose {
			b.logger.Printf("corpus %s", name)
		}
		c := cache.New(filepath.Join(outRoot, name))
		outPath := filepath.Join(outRoot, cache.FileName(name))
		res, err := b.countFolder(ctx, filepath.Join(root, name), c, outPath, name)
		var folderErr *FolderError
		switch {
		case err == nil:
		case errors.As(err, &folderErr):
			errs = append(errs, err)
		default:
			return results, fmt.Errorf("corpus %s: %w", name, err)
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
