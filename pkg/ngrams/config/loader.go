package config

import (
	"fmt"
	"log"
	"regexp"

	"github.com/pverkind/OCRngrams/pkg/ngrams/cache"
	"github.com/pverkind/OCRngrams/pkg/ngrams/corpus"
	"github.com/pverkind/OCRngrams/pkg/ngrams/ingest"
	"github.com/pverkind/OCRngrams/pkg/ngrams/segment"
)

// Components holds the runtime pieces built from a Config
type Components struct {
	Tokenizer  *ingest.Tokenizer
	Segmenter  *segment.Segmenter
	Cache      *cache.Cache
	Aggregator *corpus.Aggregator
	Include    *regexp.Regexp // nil: default discovery pattern
}

// Build validates cfg and constructs its components.
// A nil logger means log.Default().
func Build(cfg Config, logger *log.Logger) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tok, err := tokenizerFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	seg := segment.New(cfg.N, cfg.HeaderMarker, tok)
	seg.ParagraphMarker = cfg.ParagraphMarker
	seg.MaxLineSize = cfg.MaxLineSize
	seg.Verbose = cfg.Verbose
	seg.Logger = logger

	comp := &Components{
		Tokenizer:  tok,
		Segmenter:  seg,
		Cache:      cache.New(cfg.OutDir),
		Aggregator: &corpus.Aggregator{Verbose: cfg.Verbose, Logger: logger},
	}
	if cfg.Include != "" {
		comp.Include = regexp.MustCompile(cfg.Include)
	}
	return comp, nil
}

func tokenizerFor(cfg Config) (*ingest.Tokenizer, error) {
	if cfg.TokenPattern != "" {
		return ingest.NewTokenizer(cfg.TokenPattern)
	}
	return ingest.FindRule(cfg.TokenRule)
}
