package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/pverkind/OCRngrams/pkg/ngrams/corpus"
	"github.com/pverkind/OCRngrams/pkg/ngrams/ingest"
	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
	"github.com/pverkind/OCRngrams/pkg/ngrams/segment"
)

// DefaultOutDir is where per-document count files go unless configured
const DefaultOutDir = "ngrams_in_texts"

// OpenITIHeaderMarker ends the metadata header of OpenITI texts
const OpenITIHeaderMarker = "#META#Header#End"

// Config holds the pipeline parameters
type Config struct {
	N               int    `yaml:"n"`
	HeaderMarker    string `yaml:"header_marker"`
	ParagraphMarker string `yaml:"paragraph_marker"`
	TokenRule       string `yaml:"token_rule"`
	TokenPattern    string `yaml:"token_pattern"` // overrides TokenRule when set
	OutDir          string `yaml:"out_dir"`
	Overwrite       bool   `yaml:"overwrite"`
	Verbose         bool   `yaml:"verbose"`
	MaxLineSize     int    `yaml:"max_line_size"`

	corpus.Thresholds `yaml:",inline"`

	Workers         int    `yaml:"workers"`
	ContinueOnError bool   `yaml:"continue_on_error"`
	Recursive       bool   `yaml:"recursive"`
	Include         string `yaml:"include"` // regexp on file base names; empty uses the default discovery pattern
	DBPath          string `yaml:"db_path"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		N:               2,
		ParagraphMarker: segment.DefaultParagraphMarker,
		TokenRule:       ingest.RuleArabic,
		OutDir:          DefaultOutDir,
		MaxLineSize:     segment.DefaultMaxLineSize,
		Thresholds:      corpus.DefaultThresholds(),
		Workers:         1,
		Recursive:       true,
	}
}

// Load reads a YAML config file. Fields missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %v: %w", path, err, internalerr.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks parameter ranges
func (c Config) Validate() error {
	if c.N < 1 {
		return fmt.Errorf("n must be >= 1, got %d: %w", c.N, internalerr.ErrInvalidConfig)
	}
	if c.TokenRule == "" && c.TokenPattern == "" {
		return fmt.Errorf("token_rule or token_pattern is required: %w", internalerr.ErrInvalidConfig)
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir is required: %w", internalerr.ErrInvalidConfig)
	}
	if c.Input < 0 || c.Output < 0 {
		return fmt.Errorf("thresholds must be >= 0: %w", internalerr.ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d: %w", c.Workers, internalerr.ErrInvalidConfig)
	}
	if c.MaxLineSize < 0 {
		return fmt.Errorf("max_line_size must be >= 0: %w", internalerr.ErrInvalidConfig)
	}
	if c.Include != "" {
		if _, err := regexp.Compile(c.Include); err != nil {
			return fmt.Errorf("include pattern: %v: %w", err, internalerr.ErrInvalidConfig)
		}
	}
	return nil
}

// RuleName describes the token rule for run metadata
func (c Config) RuleName() string {
	if c.TokenPattern != "" {
		return "pattern:" + c.TokenPattern
	}
	return c.TokenRule
}

// Save writes the configuration as YAML
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
