package ingest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
)

// Built-in token rule names
const (
	RuleArabic     = "arabic"
	RuleWhitespace = "whitespace"
	RuleWord       = "word"
	RuleWordPunct  = "word-punct"
)

// Token-boundary patterns for the built-in rules.
const (
	// ArabicPattern matches runs of Arabic-script letters, including
	// harakat, tatweel and the Persian/Urdu letter extensions.
	// Arabic-Indic digits and Arabic punctuation are not part of a token.
	ArabicPattern     = `[\x{0621}-\x{063A}\x{0640}-\x{0655}\x{0670}-\x{06D3}]+`
	WhitespacePattern = `\S+`
	WordPattern       = `[\p{L}\p{M}\p{N}_]+`
	WordPunctPattern  = `[\p{L}\p{M}\p{N}_]+|[^\p{L}\p{M}\p{N}_\s]`
)

var (
	rulesMu sync.RWMutex
	rules   = make(map[string]*Tokenizer)
)

func init() {
	for name, pattern := range map[string]string{
		RuleArabic:     ArabicPattern,
		RuleWhitespace: WhitespacePattern,
		RuleWord:       WordPattern,
		RuleWordPunct:  WordPunctPattern,
	} {
		rules[name] = MustTokenizer(pattern)
	}
}

// RegisterRule makes a token rule available under name, replacing any
// earlier rule with the same name.
func RegisterRule(name, pattern string) error {
	if name == "" {
		return fmt.Errorf("register rule: empty name: %w", internalerr.ErrInvalidInput)
	}
	t, err := NewTokenizer(pattern)
	if err != nil {
		return fmt.Errorf("register rule %s: %w", name, err)
	}
	rulesMu.Lock()
	rules[name] = t
	rulesMu.Unlock()
	return nil
}

// FindRule returns the tokenizer registered under name
func FindRule(name string) (*Tokenizer, error) {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	t, ok := rules[name]
	if !ok {
		return nil, fmt.Errorf("can't find token rule %s: %w", name, internalerr.ErrNotFound)
	}
	return t, nil
}

// RuleNames lists registered rule names in sorted order
func RuleNames() []string {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
