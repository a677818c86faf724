package segment

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
	"github.com/pverkind/OCRngrams/pkg/ngrams/ingest"
	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
)

func whitespace() *ingest.Tokenizer {
	return ingest.MustTokenizer(ingest.WhitespacePattern)
}

func TestCountReaderNoHeader(t *testing.T) {
	seg := New(2, "", whitespace())
	acc := freq.New()

	stats, err := seg.CountReader(strings.NewReader("a b c . a b c\n"), acc)
	require.NoError(t, err)

	assert.Equal(t, freq.Table{"a b": 2, "b c": 2, "c .": 1, ". a": 1}, acc)
	assert.Equal(t, 1, stats.Lines)
	assert.Equal(t, 1, stats.Paragraphs)
	assert.Equal(t, 6, stats.NGrams)
	assert.True(t, stats.HeaderClosed)
}

func TestCountReaderSkipsHeader(t *testing.T) {
	text := strings.Join([]string{
		"#META# title :: header words here",
		"#META# author :: header words here",
		"#META#Header#End#",
		"# body one",
		"body two",
	}, "\n")

	seg := New(2, "#META#Header#End", ingest.MustTokenizer(ingest.WordPattern))
	acc := freq.New()

	stats, err := seg.CountReader(strings.NewReader(text), acc)
	require.NoError(t, err)

	for key := range acc {
		assert.NotContains(t, key, "header", "header text leaked into %q", key)
		assert.NotContains(t, key, "META", "header marker leaked into %q", key)
	}
	assert.Equal(t, freq.Table{"body one": 1, "one body": 1, "body two": 1}, acc)
	assert.Equal(t, 3, stats.HeaderLines)
	assert.True(t, stats.HeaderClosed)
}

func TestCountReaderHeaderNeverClosed(t *testing.T) {
	seg := New(2, "#META#Header#End", whitespace())
	acc := freq.New()

	stats, err := seg.CountReader(strings.NewReader("a b c\nd e f\n"), acc)
	require.NoError(t, err)

	assert.Empty(t, acc)
	assert.False(t, stats.HeaderClosed)
	assert.Equal(t, 2, stats.HeaderLines)
}

func TestCountReaderParagraphBoundaries(t *testing.T) {
	// n-grams never bridge a paragraph marker
	text := "# a b\nc\n# d e\n"
	seg := New(2, "", ingest.MustTokenizer(ingest.WordPattern))
	acc := freq.New()

	stats, err := seg.CountReader(strings.NewReader(text), acc)
	require.NoError(t, err)

	assert.Equal(t, freq.Table{"a b": 1, "b c": 1, "d e": 1}, acc)
	assert.Equal(t, 0, int(acc["c d"]))
	assert.Equal(t, 2, stats.Paragraphs)
}

func TestCountReaderFlushesLastParagraph(t *testing.T) {
	text := "# first para\n# last para without trailing marker\nstill last"
	seg := New(2, "", ingest.MustTokenizer(ingest.WordPattern))
	acc := freq.New()

	_, err := seg.CountReader(strings.NewReader(text), acc)
	require.NoError(t, err)

	assert.Equal(t, int64(1), acc["marker still"])
	assert.Equal(t, int64(1), acc["still last"])
}

func TestCountReaderBlankParagraphsIgnored(t *testing.T) {
	text := "\n   \n#\n# \n"
	seg := New(1, "", ingest.MustTokenizer(ingest.WordPattern))
	acc := freq.New()

	stats, err := seg.CountReader(strings.NewReader(text), acc)
	require.NoError(t, err)

	assert.Empty(t, acc)
	// "#" and "# " are not blank, they just hold no tokens
	assert.Equal(t, 2, stats.Paragraphs)
	assert.Equal(t, 0, stats.NGrams)
}

func TestCountReaderMarkerLineStartsParagraph(t *testing.T) {
	seg := New(2, "", whitespace())
	acc := freq.New()

	_, err := seg.CountReader(strings.NewReader("x y\n# z w"), acc)
	require.NoError(t, err)

	assert.Equal(t, freq.Table{"x y": 1, "# z": 1, "z w": 1}, acc)
}

func TestCountReaderNoParagraphMarker(t *testing.T) {
	seg := New(2, "", whitespace())
	seg.ParagraphMarker = ""
	acc := freq.New()

	stats, err := seg.CountReader(strings.NewReader("a\n# b\nc"), acc)
	require.NoError(t, err)

	assert.Equal(t, freq.Table{"a #": 1, "# b": 1, "b c": 1}, acc)
	assert.Equal(t, 1, stats.Paragraphs)
}

func TestCountReaderArabic(t *testing.T) {
	text := "######OpenITI#\n#META# 000.SortField :: قال\n#META#Header#End#\n# قال أبو بكر\n~~ رحمه الله\n# PageV01P001\n"
	tok, err := ingest.FindRule(ingest.RuleArabic)
	require.NoError(t, err)
	seg := New(2, "#META#Header#End", tok)
	acc := freq.New()

	_, err = seg.CountReader(strings.NewReader(text), acc)
	require.NoError(t, err)

	assert.Equal(t, freq.Table{
		"قال أبو":  1,
		"أبو بكر":  1,
		"بكر رحمه": 1,
		"رحمه الله": 1,
	}, acc)
}

func TestCountReaderLineTooLong(t *testing.T) {
	seg := New(1, "", whitespace())
	seg.MaxLineSize = 16
	acc := freq.New()

	_, err := seg.CountReader(strings.NewReader(strings.Repeat("x", 100)), acc)
	assert.Error(t, err)
	assert.Empty(t, acc, "a failed scan must not flush a partial paragraph")
}

func TestCountReaderVerboseProgress(t *testing.T) {
	var buf bytes.Buffer
	seg := New(1, "", whitespace())
	seg.Verbose = true
	seg.Logger = log.New(&buf, "", 0)

	text := strings.Repeat("w\n", progressEvery)
	_, err := seg.CountReader(strings.NewReader(text), freq.New())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "10000 lines")
}

func TestCountReaderInvalid(t *testing.T) {
	_, err := New(0, "", whitespace()).CountReader(strings.NewReader("a"), freq.New())
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	_, err = New(2, "", nil).CountReader(strings.NewReader("a"), freq.New())
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	_, err = New(2, "", whitespace()).CountReader(strings.NewReader("a"), nil)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
}
