package output

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ccollicutt/convlog/pkg/parser"
)

// TextFormatter formats reports as a human-readable console summary.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "convlog: %d entries (%d critical, %d error, %d warning) in %d file(s)\n",
		s.TotalEntries,
		s.ByLevel.Get(parser.LevelCritical),
		s.ByLevel.Get(parser.LevelError),
		s.ByLevel.Get(parser.LevelWarning),
		s.FilesAnalyzed)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	s := report.Summary

	fmt.Fprintln(w, "=== Log Analysis Summary ===")
	fmt.Fprintln(w)

	if report.Metadata.Interrupted {
		fmt.Fprintln(w, "WARNING: analysis was interrupted, counts are partial")
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total entries found: %d\n", s.TotalEntries)
	for _, level := range parser.Levels() {
		fmt.Fprintf(w, "  %s: %d\n", level, s.ByLevel.Get(level))
	}

	if report.HasTaggedSteps() {
		fmt.Fprintf(w, "  Steps identified: %d\n", countTagged(report))
		fmt.Fprintln(w)
		if err := f.formatSteps(report, w); err != nil {
			return err
		}
	}

	if len(report.Metadata.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Skipped files: %d\n", len(report.Metadata.Skipped))
		for _, skipped := range report.Metadata.Skipped {
			fmt.Fprintf(w, "  - %s: %s\n", skipped.Path, skipped.Reason)
		}
	}

	if f.opts.Verbose {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Files analyzed: %d\n", s.FilesAnalyzed)
		fmt.Fprintf(w, "Lines processed: %d\n", s.LinesProcessed)
		if s.LinesSkipped > 0 {
			fmt.Fprintf(w, "Lines skipped (undecodable): %d\n", s.LinesSkipped)
		}
		if s.LinesTruncated > 0 {
			fmt.Fprintf(w, "Lines truncated (too long): %d\n", s.LinesTruncated)
		}
		fmt.Fprintf(w, "Encoding: %s\n", report.Metadata.Encoding)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
		fmt.Fprintf(w, "Run ID: %s\n", report.Metadata.RunID)
	}

	return nil
}

func (f *TextFormatter) formatSteps(report *Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  STEP\tCRITICAL\tERROR\tWARNING\tTOTAL")
	for _, sc := range report.Summary.Steps {
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%d\n",
			sc.Step,
			sc.Counts.Get(parser.LevelCritical),
			sc.Counts.Get(parser.LevelError),
			sc.Counts.Get(parser.LevelWarning),
			sc.Counts.Total())
	}
	return tw.Flush()
}

func countTagged(report *Report) int {
	n := 0
	for _, sc := range report.Summary.Steps {
		if sc.Step.Tagged {
			n++
		}
	}
	return n
}
