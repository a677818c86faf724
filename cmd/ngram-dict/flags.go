package main

import "github.com/pverkind/OCRngrams/pkg/ngrams/config"

// overrides holds command-line values that win over the config file.
// Zero values mean "not given"; the boolean switches can only turn a
// setting on.
type overrides struct {
	N               int
	HeaderMarker    string
	TokenRule       string
	TokenPattern    string
	OutDir          string
	Input           int64
	Output          int64
	Workers         int
	DBPath          string
	Overwrite       bool
	Verbose         bool
	ContinueOnError bool
}

func (o overrides) apply(cfg *config.Config) {
	if o.N != 0 {
		cfg.N = o.N
	}
	if o.HeaderMarker != "" {
		cfg.HeaderMarker = o.HeaderMarker
	}
	if o.TokenRule != "" {
		cfg.TokenRule = o.TokenRule
		cfg.TokenPattern = ""
	}
	if o.TokenPattern != "" {
		cfg.TokenPattern = o.TokenPattern
	}
	if o.OutDir != "" {
		cfg.OutDir = o.OutDir
	}
	if o.Input != 0 {
		cfg.Input = o.Input
	}
	if o.Output != 0 {
		cfg.Output = o.Output
	}
	if o.Workers != 0 {
		cfg.Workers = o.Workers
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	cfg.Overwrite = cfg.Overwrite || o.Overwrite
	cfg.Verbose = cfg.Verbose || o.Verbose
	cfg.ContinueOnError = cfg.ContinueOnError || o.ContinueOnError
}

// loadConfig reads path (defaults when empty), applies o and validates.
func loadConfig(path string, o overrides) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	o.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
