package analyzer

import (
	"errors"
	"fmt"
	"time"

	"github.com/ccollicutt/convlog/pkg/aggregate"
)

// ErrAborted marks errors that stopped a run because of the abort policy.
var ErrAborted = errors.New("analysis aborted")

// DecodePolicy enumerates what to do with a line that cannot be decoded.
type DecodePolicy string

const (
	// DecodeReplace substitutes U+FFFD for invalid bytes and keeps the line.
	DecodeReplace DecodePolicy = "replace"

	// DecodeSkipLine drops the line and continues with the file.
	DecodeSkipLine DecodePolicy = "skip_line"

	// DecodeSkipFile discards everything read from the file.
	DecodeSkipFile DecodePolicy = "skip_file"

	// DecodeAbort stops the run.
	DecodeAbort DecodePolicy = "abort"
)

// Validate checks that p is a known policy.
func (p DecodePolicy) Validate() error {
	switch p {
	case DecodeReplace, DecodeSkipLine, DecodeSkipFile, DecodeAbort:
		return nil
	default:
		return fmt.Errorf("invalid decode policy %q (must be replace, skip_line, skip_file, or abort)", p)
	}
}

// FilePolicy enumerates what to do with a file that cannot be read.
type FilePolicy string

const (
	// FileSkip records the failure and continues with the next file.
	FileSkip FilePolicy = "skip"

	// FileAbort stops the run.
	FileAbort FilePolicy = "abort"
)

// Validate checks that p is a known policy.
func (p FilePolicy) Validate() error {
	switch p {
	case FileSkip, FileAbort:
		return nil
	default:
		return fmt.Errorf("invalid file policy %q (must be skip or abort)", p)
	}
}

// Result is the outcome of a run.
type Result struct {
	// Stats is the aggregated statistics. Partial when the run was
	// interrupted or aborted.
	Stats *aggregate.Stats

	// Metadata describes the run.
	Metadata Metadata
}

// Metadata provides context about the run.
type Metadata struct {
	// Sources lists the files that were read, in processing order.
	Sources []string

	// Skipped lists the files that failed and why.
	Skipped []FileError

	// LinesRead is the number of lines read across all files.
	LinesRead int

	// LinesSkipped is the number of undecodable lines dropped.
	LinesSkipped int

	// LinesTruncated is the number of lines cut at parser.MaxLineSize.
	LinesTruncated int

	// Encoding is the input text encoding.
	Encoding string

	// Detailed is true when individual entries were retained.
	Detailed bool

	// Workers is the configured file concurrency.
	Workers int

	// Interrupted is true when the run was cancelled before finishing.
	Interrupted bool

	// StartTime is when the run began.
	StartTime time.Time

	// EndTime is when the run completed.
	EndTime time.Time
}

// Duration returns how long the run took.
func (m Metadata) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// SourceStats counts the lines of a single source.
type SourceStats struct {
	LinesRead      int
	LinesSkipped   int
	LinesTruncated int
}

// FileError records a file that could not be processed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
