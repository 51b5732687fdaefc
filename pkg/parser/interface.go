package parser

import "context"

// LineSource provides an iterator over decoded log lines.
// Implementations must be safe for sequential access (not concurrent) and
// are not restartable.
type LineSource interface {
	// Next returns the next line.
	// Returns io.EOF when no more lines are available.
	// Returns a *DecodeError for a line that could not be decoded; the
	// source stays usable and the following call moves on to the next line.
	Next(ctx context.Context) (*LogLine, error)

	// Close releases any resources held by the source.
	Close() error
}
