package output

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ccollicutt/convlog/pkg/parser"
)

// CSVSummaryFormatter writes the level and step tables as CSV.
type CSVSummaryFormatter struct {
	opts FormatOptions
}

// NewCSVSummaryFormatter creates a CSV summary formatter.
func NewCSVSummaryFormatter(opts FormatOptions) *CSVSummaryFormatter {
	return &CSVSummaryFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVSummaryFormatter) Name() string {
	return "csv-summary"
}

// Format renders three blocks separated by blank rows: overall statistics,
// counts per level in precedence order, and counts per step in first-seen
// order. Entries without a step tag are counted in a row with an empty Step
// cell.
func (f *CSVSummaryFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)
	s := report.Summary

	rows := [][]string{
		{"Category", "Value"},
		{"Total Entries", strconv.Itoa(s.TotalEntries)},
		{"Files Analyzed", strconv.Itoa(s.FilesAnalyzed)},
		{},
		{"Level", "Count"},
	}
	for _, level := range parser.Levels() {
		rows = append(rows, []string{level.String(), strconv.Itoa(s.ByLevel.Get(level))})
	}

	if len(s.Steps) > 0 {
		rows = append(rows, []string{}, []string{"Step", "CRITICAL", "ERROR", "WARNING", "Total"})
		for _, sc := range s.Steps {
			rows = append(rows, []string{
				csvStep(sc.Step),
				strconv.Itoa(sc.Counts.Get(parser.LevelCritical)),
				strconv.Itoa(sc.Counts.Get(parser.LevelError)),
				strconv.Itoa(sc.Counts.Get(parser.LevelWarning)),
				strconv.Itoa(sc.Counts.Total()),
			})
		}
	}

	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// CSVDetailedFormatter writes one row per entry in arrival order.
type CSVDetailedFormatter struct {
	opts FormatOptions
}

// NewCSVDetailedFormatter creates a CSV detailed formatter.
func NewCSVDetailedFormatter(opts FormatOptions) *CSVDetailedFormatter {
	return &CSVDetailedFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVDetailedFormatter) Name() string {
	return "csv-detailed"
}

// Format renders the detailed entries. Entries without a step tag have an
// empty Step column.
func (f *CSVDetailedFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Level", "Step", "Line Number", "Filename", "Message"}); err != nil {
		return err
	}

	for _, e := range report.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write([]string{
			e.Level.String(),
			csvStep(e.Step),
			strconv.Itoa(e.LineNum),
			e.Filename,
			e.Message,
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvStep leaves the cell empty for NoStep. A tagged step always has a
// non-empty name, so the two cannot be confused.
func csvStep(step parser.Step) string {
	if !step.Tagged {
		return ""
	}
	return step.Name
}
