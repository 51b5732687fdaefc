// Package detector inspects a log file to suggest how convlog should read it.
package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/ccollicutt/convlog/pkg/aggregate"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// DefaultSampleSize is the number of lines sampled by default.
const DefaultSampleSize = 100

// maxHeadBytes bounds how much of the file is read for encoding detection.
const maxHeadBytes = 64 * 1024

// maxSteps bounds the distinct step names listed in a result.
const maxSteps = 20

// DetectionResult holds the result of analyzing a log file.
type DetectionResult struct {
	Encoding     string                // Suggested encoding
	Reason       string                // Why the encoding was chosen
	BOM          bool                  // True if the file starts with a byte order mark
	SampledLines int                   // Number of lines sampled
	InvalidLines int                   // Lines that do not decode in the suggested encoding
	LevelHits    aggregate.LevelCounts // Classified lines per level
	WordHits     int                   // Lines matched when keywords must be whole words
	TaggedLines  int                   // Classified lines carrying a [STEP:...] tag
	Steps        []string              // Distinct step names in first-seen order
	Samples      []parser.LogEntry     // First classified line per level
}

// Classified returns the number of sampled lines that carry a level keyword.
func (r *DetectionResult) Classified() int {
	return r.LevelHits.Total()
}

// SuggestWordMatch reports whether whole-word matching would classify fewer
// lines than substring matching, which hints at words such as "errorCount"
// or "WARNINGS" being counted.
func (r *DetectionResult) SuggestWordMatch() bool {
	return r.WordHits < r.Classified()
}

// HasEntries returns true if at least one sampled line was classified.
func (r *DetectionResult) HasEntries() bool {
	return r.Classified() > 0
}

// Detector samples log files.
type Detector struct {
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes the head of a log file.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	head := make([]byte, maxHeadBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return d.DetectFromBytes(ctx, head[:n])
}

// DetectFromBytes analyzes raw file content.
func (d *Detector) DetectFromBytes(ctx context.Context, head []byte) (*DetectionResult, error) {
	result := &DetectionResult{}
	result.Encoding, result.Reason, result.BOM = guessEncoding(head)

	dec, err := parser.NewDecoder(result.Encoding, true)
	if err != nil {
		return nil, err
	}

	if result.Encoding == EncodingUTF8 {
		head = trimPartialRune(head)
	}

	src := parser.NewReaderSource("sample", bytes.NewReader(head), dec)
	defer src.Close()

	word := parser.NewWordClassifier()
	seenStep := make(map[string]bool)
	var sampled [parser.NumLevels]bool

	for result.SampledLines < d.sampleSize {
		line, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		var decodeErr *parser.DecodeError
		if errors.As(err, &decodeErr) {
			result.SampledLines++
			result.InvalidLines++
			continue
		}
		if err != nil {
			return nil, err
		}
		result.SampledLines++

		entry, ok := parser.Classify(line.Content, "", line.LineNum)
		if !ok {
			continue
		}
		result.LevelHits[entry.Level]++

		if _, ok := word.Classify(line.Content, "", line.LineNum); ok {
			result.WordHits++
		}

		if !sampled[entry.Level] {
			sampled[entry.Level] = true
			result.Samples = append(result.Samples, entry)
		}

		if entry.Step.Tagged {
			result.TaggedLines++
			if !seenStep[entry.Step.Name] && len(result.Steps) < maxSteps {
				seenStep[entry.Step.Name] = true
				result.Steps = append(result.Steps, entry.Step.Name)
			}
		}
	}

	return result, nil
}

// guessEncoding picks the most plausible encoding for head.
func guessEncoding(head []byte) (name, reason string, bom bool) {
	if enc, ok := sniffBOM(head); ok {
		return enc, "byte order mark", true
	}
	if enc, ok := sniffUTF16(head); ok {
		return enc, "NUL byte pattern", false
	}
	if utf8.Valid(trimPartialRune(head)) {
		return EncodingUTF8, "valid UTF-8", false
	}
	return EncodingWindows1252, "invalid UTF-8, assuming a single-byte Western encoding", false
}

// trimPartialRune drops an incomplete UTF-8 sequence cut off by the sample
// boundary.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}
