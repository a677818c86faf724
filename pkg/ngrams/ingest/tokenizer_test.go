package ingest

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
)

func TestTokenizerRules(t *testing.T) {
	tests := []struct {
		name string
		rule string
		text string
		want []string
	}{
		{
			name: "whitespace keeps punctuation tokens",
			rule: RuleWhitespace,
			text: "a b c . a b c",
			want: []string{"a", "b", "c", ".", "a", "b", "c"},
		},
		{
			name: "word drops punctuation",
			rule: RuleWord,
			text: "hello, world!",
			want: []string{"hello", "world"},
		},
		{
			name: "word-punct splits punctuation",
			rule: RuleWordPunct,
			text: "hello, world!",
			want: []string{"hello", ",", "world", "!"},
		},
		{
			name: "arabic ignores latin, digits and markup",
			rule: RuleArabic,
			text: "# قال أبو 12 ms123 بكر، رحمه الله.",
			want: []string{"قال", "أبو", "بكر", "رحمه", "الله"},
		},
		{
			name: "arabic keeps harakat inside the token",
			rule: RuleArabic,
			text: "كَتَبَ",
			want: []string{"كَتَبَ"},
		},
		{
			name: "empty text",
			rule: RuleWhitespace,
			text: "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := FindRule(tt.rule)
			if err != nil {
				t.Fatalf("FindRule(%s): %v", tt.rule, err)
			}
			if got := tok.Tokenize(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenizerSkipsEmptyMatches(t *testing.T) {
	tok := MustTokenizer(`a*`)
	got := tok.Tokenize("baab")
	if !reflect.DeepEqual(got, []string{"aa"}) {
		t.Errorf("Expected only non-empty matches, got %q", got)
	}
}

func TestTokenizerEmptyMatchesStepByRune(t *testing.T) {
	tok := MustTokenizer(`x*`)
	got := tok.Tokenize("éبxxé x")
	if !reflect.DeepEqual(got, []string{"xx", "x"}) {
		t.Errorf("Expected stepping over multibyte runes, got %q", got)
	}
}

func TestTokensAgreeWithFindAll(t *testing.T) {
	texts := []string{
		"",
		"a b c . a b c",
		"  leading and trailing  ",
		"قال أبو بكر: ١٢٣ «نعم»",
		"word,punct;mixed 42x",
	}
	for _, pattern := range []string{ArabicPattern, WhitespacePattern, WordPattern, WordPunctPattern} {
		tok := MustTokenizer(pattern)
		for _, text := range texts {
			want := tok.re.FindAllString(text, -1)
			got := tok.Tokenize(text)
			if len(want) == 0 && len(got) == 0 {
				continue
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("pattern %s on %q: Tokenize = %q, FindAllString = %q", pattern, text, got, want)
			}
		}
	}
}

func TestTokenizerEarlyStop(t *testing.T) {
	tok := MustTokenizer(WhitespacePattern)
	var seen []string
	for tk := range tok.Tokens("one two three") {
		seen = append(seen, tk)
		if len(seen) == 2 {
			break
		}
	}
	if !reflect.DeepEqual(seen, []string{"one", "two"}) {
		t.Errorf("Expected iteration to stop after two tokens, got %q", seen)
	}
}

func TestNewTokenizerInvalid(t *testing.T) {
	if _, err := NewTokenizer(`[`); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewTokenizer(""); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for empty pattern, got %v", err)
	}
}

func TestFindRuleUnknown(t *testing.T) {
	if _, err := FindRule("klingon"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRegisterRule(t *testing.T) {
	if err := RegisterRule("digits", `\d+`); err != nil {
		t.Fatalf("RegisterRule: %v", err)
	}
	tok, err := FindRule("digits")
	if err != nil {
		t.Fatalf("FindRule: %v", err)
	}
	if got := tok.Tokenize("a1 22 b333"); !reflect.DeepEqual(got, []string{"1", "22", "333"}) {
		t.Errorf("unexpected tokens %q", got)
	}

	if err := RegisterRule("broken", `(`); err == nil {
		t.Error("RegisterRule should reject an invalid pattern")
	}

	names := RuleNames()
	for _, want := range []string{RuleArabic, RuleWhitespace, RuleWord, RuleWordPunct, "digits"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("rule %s missing from %v", want, names)
		}
	}
}
