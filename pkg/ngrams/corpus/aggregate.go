package corpus

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/pverkind/OCRngrams/pkg/ngrams/cache"
	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
)

// Thresholds are minimum counts for keeping an n-gram.
// Input applies to each document's table before merging, Output to the
// merged corpus table. Values of 1 or less disable the filter.
type Thresholds struct {
	Input  int64 `yaml:"input_threshold" json:"input_threshold"`
	Output int64 `yaml:"output_threshold" json:"output_threshold"`
}

// DefaultThresholds keeps every n-gram
func DefaultThresholds() Thresholds {
	return Thresholds{Input: 1, Output: 1}
}

// Result describes a corpus dictionary produced by Join
type Result struct {
	Table      freq.Table
	Documents  int
	Thresholds Thresholds
	OutPath    string
}

// Merge sums the tables after dropping per-document counts below
// th.Input, then drops merged counts below th.Output.
// The result does not depend on the order of tables.
func Merge(tables []freq.Table, th Thresholds) freq.Table {
	total := freq.New()
	for _, t := range tables {
		total.Merge(t.Filter(th.Input))
	}
	return total.Filter(th.Output)
}

// Aggregator merges the per-document count files of a directory.
type Aggregator struct {
	Verbose bool
	Logger  *log.Logger
}

func (a *Aggregator) logger() *log.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return log.Default()
}

// Join merges every count file in dir into one corpus table and writes it
// to outPath. A corrupt count file aborts the join. When outPath itself
// lies in dir it is not read back as a document.
func (a *Aggregator) Join(ctx context.Context, dir, outPath string, th Thresholds) (Result, error) {
	paths, err := cache.New(dir).List()
	if err != nil {
		return Result{}, fmt.Errorf("join %s: %w", dir, err)
	}
	if a.Verbose {
		a.logger().Printf("combining counts from %d files in %s", len(paths), dir)
	}
	return a.JoinFiles(ctx, paths, outPath, th)
}

// JoinFiles merges the given count files into outPath. A path equal to
// outPath is skipped.
func (a *Aggregator) JoinFiles(ctx context.Context, paths []string, outPath string, th Thresholds) (Result, error) {
	skip, _ := filepath.Abs(outPath)

	total := freq.New()
	docs := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if abs, _ := filepath.Abs(p); abs == skip {
			continue
		}
		if a.Verbose {
			a.logger().Printf("- %s", filepath.Base(p))
		}
		t, err := cache.ReadTable(p)
		if err != nil {
			return Result{}, fmt.Errorf("join into %s: %w", outPath, err)
		}
		total.Merge(t.Filter(th.Input))
		docs++
	}
	total = total.Filter(th.Output)

	if err := cache.WriteTable(outPath, total); err != nil {
		return Result{}, fmt.Errorf("join into %s: %w", outPath, err)
	}
	return Result{
		Table:      total,
		Documents:  docs,
		Thresholds: th,
		OutPath:    outPath,
	}, nil
}

// Join runs a quiet Aggregator
func Join(ctx context.Context, dir, outPath string, th Thresholds) (Result, error) {
	var a Aggregator
	return a.Join(ctx, dir, outPath, th)
}
