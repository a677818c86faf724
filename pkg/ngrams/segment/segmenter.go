package segment

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/pverkind/OCRngrams/pkg/ngrams/freq"
	"github.com/pverkind/OCRngrams/pkg/ngrams/ingest"
	"github.com/pverkind/OCRngrams/pkg/ngrams/internalerr"
	"github.com/pverkind/OCRngrams/pkg/ngrams/ngram"
)

const (
	// DefaultParagraphMarker starts a new paragraph (mARkdown headings, page and paragraph tags)
	DefaultParagraphMarker = "#"

	// DefaultMaxLineSize bounds a single line; some OCR'd books have
	// paragraphs spanning megabytes without a newline.
	DefaultMaxLineSize = 16 * 1024 * 1024

	progressEvery = 10000
)

// Segmenter splits a document into an optional metadata header, which is
// skipped, and body paragraphs, which are fed to the n-gram counter.
type Segmenter struct {
	N               int
	HeaderMarker    string // empty: the body starts at the first line
	ParagraphMarker string // line prefix that closes the previous paragraph
	Tokenizer       *ingest.Tokenizer
	MaxLineSize     int
	Verbose         bool
	Logger          *log.Logger
}

// Stats describes one scan
type Stats struct {
	Lines        int
	HeaderLines  int
	HeaderClosed bool // the header marker was seen (always true without a marker)
	Paragraphs   int
	NGrams       int
}

type state int

const (
	stateHeader state = iota
	stateBody
)

// New creates a segmenter with the default paragraph marker
func New(n int, headerMarker string, tok *ingest.Tokenizer) *Segmenter {
	return &Segmenter{
		N:               n,
		HeaderMarker:    headerMarker,
		ParagraphMarker: DefaultParagraphMarker,
		Tokenizer:       tok,
		MaxLineSize:     DefaultMaxLineSize,
	}
}

func (s *Segmenter) validate(acc freq.Table) error {
	if s.N < 1 {
		return fmt.Errorf("segmenter: window size %d: %w", s.N, internalerr.ErrInvalidInput)
	}
	if s.Tokenizer == nil {
		return fmt.Errorf("segmenter: nil tokenizer: %w", internalerr.ErrInvalidInput)
	}
	if acc == nil {
		return fmt.Errorf("segmenter: nil accumulator: %w", internalerr.ErrInvalidInput)
	}
	return nil
}

func (s *Segmenter) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// CountReader reads r line by line and adds the n-grams of every body
// paragraph to acc.
//
// Lines before the first line containing HeaderMarker (inclusive) are
// skipped. In the body, a line starting with ParagraphMarker flushes the
// buffered paragraph and opens a new one with that line; other lines are
// appended with a joining space. The last paragraph is flushed when the
// scan ends without error.
func (s *Segmenter) CountReader(r io.Reader, acc freq.Table) (stats Stats, err error) {
	if err := s.validate(acc); err != nil {
		return stats, err
	}

	maxLine := s.MaxLineSize
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	initial := 64 * 1024
	if initial > maxLine {
		initial = maxLine
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initial), maxLine)

	st := stateBody
	if s.HeaderMarker != "" {
		st = stateHeader
	} else {
		stats.HeaderClosed = true
	}

	para := &paragraph{seg: s, acc: acc, stats: &stats}
	defer func() {
		if err == nil {
			err = para.flush()
		}
	}()

	for scanner.Scan() {
		line := scanner.Text()
		stats.Lines++

		switch st {
		case stateHeader:
			stats.HeaderLines++
			if strings.Contains(line, s.HeaderMarker) {
				stats.HeaderClosed = true
				st = stateBody
			}
		case stateBody:
			if s.ParagraphMarker != "" && strings.HasPrefix(line, s.ParagraphMarker) {
				if err := para.flush(); err != nil {
					return stats, err
				}
				para.start(line)
			} else {
				para.append(line)
			}
		}

		if s.Verbose && stats.Lines%progressEvery == 0 {
			s.logger().Printf("%d lines, %d distinct n-grams", stats.Lines, len(acc))
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read line %d: %w", stats.Lines+1, err)
	}
	return stats, nil
}

// paragraph buffers body lines until the next flush.
type paragraph struct {
	seg   *Segmenter
	acc   freq.Table
	stats *Stats
	buf   strings.Builder
}

func (p *paragraph) start(line string) {
	p.buf.Reset()
	p.buf.WriteString(line)
}

func (p *paragraph) append(line string) {
	p.buf.WriteByte(' ')
	p.buf.WriteString(line)
}

func (p *paragraph) flush() error {
	text := p.buf.String()
	p.buf.Reset()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	emitted, err := ngram.CountText(text, p.seg.N, p.seg.Tokenizer, p.acc)
	if err != nil {
		return err
	}
	p.stats.Paragraphs++
	p.stats.NGrams += emitted
	return nil
}
