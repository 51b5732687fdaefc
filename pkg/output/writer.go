package output

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Report file formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

const reportTimeLayout = "20060102_150405"

// ParseFormats expands a comma separated format list into report formats.
// "both" means csv and markdown, "all" adds json. The result keeps the
// csv, markdown, json order and has no duplicates.
func ParseFormats(value string) ([]string, error) {
	want := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		switch name := strings.ToLower(strings.TrimSpace(part)); name {
		case "":
		case FormatCSV, FormatMarkdown, FormatJSON:
			want[name] = true
		case "md":
			want[FormatMarkdown] = true
		case "both":
			want[FormatCSV] = true
			want[FormatMarkdown] = true
		case "all":
			want[FormatCSV] = true
			want[FormatMarkdown] = true
			want[FormatJSON] = true
		default:
			return nil, fmt.Errorf("unknown report format %q (must be csv, markdown, json, both, or all)", name)
		}
	}

	var formats []string
	for _, name := range []string{FormatCSV, FormatMarkdown, FormatJSON} {
		if want[name] {
			formats = append(formats, name)
		}
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no report format selected")
	}
	return formats, nil
}

type reportFile struct {
	prefix    string
	ext       string
	formatter Formatter
}

func reportFiles(formats []string, detailed bool, opts FormatOptions) ([]reportFile, error) {
	var files []reportFile
	for _, format := range formats {
		switch format {
		case FormatCSV:
			files = append(files, reportFile{"summary", "csv", NewCSVSummaryFormatter(opts)})
			if detailed {
				files = append(files, reportFile{"detailed", "csv", NewCSVDetailedFormatter(opts)})
			}
		case FormatMarkdown:
			files = append(files, reportFile{"summary", "md", NewMarkdownSummaryFormatter(opts)})
			if detailed {
				files = append(files, reportFile{"detailed", "md", NewMarkdownDetailedFormatter(opts)})
			}
		case FormatJSON:
			files = append(files, reportFile{"report", "json", NewJSONFormatter(opts)})
		default:
			return nil, fmt.Errorf("unknown report format %q", format)
		}
	}
	return files, nil
}

// WriteReports renders report in each format into dir, creating it if
// needed. Files are named <kind>_<YYYYMMDD_HHMMSS>.<ext> after the time the
// analysis finished. Detailed reports are only written when detailed is set.
// It returns the paths written, in order.
func WriteReports(ctx context.Context, dir string, formats []string, detailed bool, report *Report, opts FormatOptions) ([]string, error) {
	// Quiet shapes console output only; report files are always complete.
	opts.Quiet = false

	files, err := reportFiles(formats, detailed, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	stamp := report.Metadata.AnalyzedAt.Format(reportTimeLayout)

	var written []string
	for _, rf := range files {
		var buf bytes.Buffer
		if err := rf.formatter.Format(ctx, report, &buf); err != nil {
			return written, fmt.Errorf("formatting %s report: %w", rf.formatter.Name(), err)
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", rf.prefix, stamp, rf.ext))
		if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
			return written, fmt.Errorf("writing report: %w", err)
		}
		written = append(written, path)
	}

	return written, nil
}
