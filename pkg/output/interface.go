package output

import (
	"context"
	"io"
)

// Formatter renders analysis results in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json, csv-summary, ...).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds run details such as line counts and duration.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool

	// MaxEntriesPerLevel caps the entries listed per level in detailed
	// Markdown reports. Zero means DefaultMaxEntriesPerLevel.
	MaxEntriesPerLevel int
}

// DefaultMaxEntriesPerLevel is the per-level cap of detailed Markdown reports.
const DefaultMaxEntriesPerLevel = 100

func (o FormatOptions) maxEntries() int {
	if o.MaxEntriesPerLevel <= 0 {
		return DefaultMaxEntriesPerLevel
	}
	return o.MaxEntriesPerLevel
}
