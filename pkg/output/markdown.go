package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ccollicutt/convlog/pkg/parser"
)

const markdownTimeLayout = "2006-01-02 15:04:05"

// MarkdownSummaryFormatter writes the level and step tables as Markdown.
type MarkdownSummaryFormatter struct {
	opts FormatOptions
}

// NewMarkdownSummaryFormatter creates a Markdown summary formatter.
func NewMarkdownSummaryFormatter(opts FormatOptions) *MarkdownSummaryFormatter {
	return &MarkdownSummaryFormatter{opts: opts}
}

// Name returns the format name.
func (f *MarkdownSummaryFormatter) Name() string {
	return "markdown-summary"
}

// Format renders the summary report.
func (f *MarkdownSummaryFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	var b strings.Builder
	s := report.Summary

	b.WriteString("# Log Analysis Summary Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", report.Metadata.AnalyzedAt.Format(markdownTimeLayout))
	if report.Metadata.Interrupted {
		b.WriteString("> **Note:** the analysis was interrupted; counts are partial.\n\n")
	}

	b.WriteString("## Overall Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Entries:** %d\n", s.TotalEntries)
	fmt.Fprintf(&b, "- **Files Analyzed:** %d\n", s.FilesAnalyzed)
	if s.FilesSkipped > 0 {
		fmt.Fprintf(&b, "- **Files Skipped:** %d\n", s.FilesSkipped)
	}
	fmt.Fprintf(&b, "- **Lines Processed:** %d\n\n", s.LinesProcessed)

	b.WriteString("## Error Level Frequency\n\n")
	b.WriteString("| Level | Count |\n")
	b.WriteString("|-------|-------|\n")
	for _, level := range parser.Levels() {
		fmt.Fprintf(&b, "| %s | %d |\n", level, s.ByLevel.Get(level))
	}
	b.WriteString("\n")

	if len(s.Steps) > 0 {
		b.WriteString("## Errors by Step/Module\n\n")
		b.WriteString("| Step | CRITICAL | ERROR | WARNING | Total |\n")
		b.WriteString("|------|----------|-------|---------|-------|\n")
		for _, sc := range s.Steps {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n",
				markdownStep(sc.Step),
				sc.Counts.Get(parser.LevelCritical),
				sc.Counts.Get(parser.LevelError),
				sc.Counts.Get(parser.LevelWarning),
				sc.Counts.Total())
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// MarkdownDetailedFormatter lists entries per level as Markdown.
type MarkdownDetailedFormatter struct {
	opts FormatOptions
}

// NewMarkdownDetailedFormatter creates a Markdown detailed formatter.
func NewMarkdownDetailedFormatter(opts FormatOptions) *MarkdownDetailedFormatter {
	return &MarkdownDetailedFormatter{opts: opts}
}

// Name returns the format name.
func (f *MarkdownDetailedFormatter) Name() string {
	return "markdown-detailed"
}

// Format renders one section per level in precedence order. Each section
// lists at most FormatOptions.MaxEntriesPerLevel entries in arrival order,
// followed by a per-file breakdown.
func (f *MarkdownDetailedFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	var b strings.Builder
	limit := f.opts.maxEntries()

	b.WriteString("# Detailed Log Analysis Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", report.Metadata.AnalyzedAt.Format(markdownTimeLayout))

	for _, level := range parser.Levels() {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries := report.EntriesForLevel(level)
		if len(entries) == 0 {
			continue
		}

		fmt.Fprintf(&b, "## %s Messages (%d total)\n\n", level, len(entries))

		shown := entries
		if len(shown) > limit {
			shown = shown[:limit]
		}
		for _, e := range shown {
			fmt.Fprintf(&b, "### Line %d", e.LineNum)
			if e.Filename != "" {
				fmt.Fprintf(&b, " - %s", e.Filename)
			}
			if e.Step.Tagged {
				fmt.Fprintf(&b, " - [STEP: %s]", e.Step.Name)
			}
			b.WriteString("\n\n")
			fmt.Fprintf(&b, "```\n%s\n```\n\n", e.Message)
		}

		if more := len(entries) - len(shown); more > 0 {
			fmt.Fprintf(&b, "*...and %d more %s messages*\n\n", more, level)
		}
	}

	writeFileBreakdown(&b, report)

	_, err := io.WriteString(w, b.String())
	return err
}

// writeFileBreakdown appends a table of level counts per file, in the order
// files first produced an entry.
func writeFileBreakdown(b *strings.Builder, report *Report) {
	if len(report.Entries) == 0 {
		return
	}

	var files []string
	counts := make(map[string]*[parser.NumLevels]int)
	for _, e := range report.Entries {
		c, ok := counts[e.Filename]
		if !ok {
			c = new([parser.NumLevels]int)
			counts[e.Filename] = c
			files = append(files, e.Filename)
		}
		c[e.Level]++
	}

	b.WriteString("## Entries by File\n\n")
	b.WriteString("| File | Critical | Error | Warning | Total |\n")
	b.WriteString("|------|----------|-------|---------|-------|\n")
	for _, name := range files {
		c := counts[name]
		fmt.Fprintf(b, "| %s | %d | %d | %d | %d |\n",
			escapeCell(name),
			c[parser.LevelCritical],
			c[parser.LevelError],
			c[parser.LevelWarning],
			c[parser.LevelCritical]+c[parser.LevelError]+c[parser.LevelWarning])
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// markdownStep renders NoStep in italics. Tagged names have their emphasis
// markers escaped, so no step name renders the same way.
func markdownStep(step parser.Step) string {
	if !step.Tagged {
		return "*untagged*"
	}
	return strings.NewReplacer("*", `\*`, "_", `\_`).Replace(escapeCell(step.Name))
}
