package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/convlog/pkg/aggregate"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// JSONFormatter formats reports as JSON.
//
// A summary run encodes summary and metadata only. A detailed run always
// carries an entries array, empty when nothing was classified, so readers
// can tell the two apart. Quiet mode prints a single-line counts document.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// countsDocument is the quiet mode output.
type countsDocument struct {
	Total       int                    `json:"total"`
	ByLevel     aggregate.LevelCounts  `json:"by_level"`
	Steps       []aggregate.StepCounts `json:"steps"`
	Interrupted bool                   `json:"interrupted,omitempty"`
}

type summaryDocument struct {
	Summary  Summary  `json:"summary"`
	Metadata Metadata `json:"metadata"`
}

type detailedDocument struct {
	Summary  Summary           `json:"summary"`
	Entries  []parser.LogEntry `json:"entries"`
	Metadata Metadata          `json:"metadata"`
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)

	if f.opts.Quiet {
		return encoder.Encode(countsDocument{
			Total:       report.Summary.TotalEntries,
			ByLevel:     report.Summary.ByLevel,
			Steps:       nonNil(report.Summary.Steps),
			Interrupted: report.Metadata.Interrupted,
		})
	}

	encoder.SetIndent("", "  ")

	summary := report.Summary
	summary.Steps = nonNil(summary.Steps)

	if !report.Metadata.Detailed {
		return encoder.Encode(summaryDocument{Summary: summary, Metadata: report.Metadata})
	}
	return encoder.Encode(detailedDocument{
		Summary:  summary,
		Entries:  nonNil(report.Entries),
		Metadata: report.Metadata,
	})
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
