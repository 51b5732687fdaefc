// Package output provides formatting and report generation for analysis results.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/convlog/pkg/aggregate"
	"github.com/ccollicutt/convlog/pkg/analyzer"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// Report is the complete analysis output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Entries lists every classified line in arrival order.
	// Only present for detailed runs.
	Entries []parser.LogEntry `json:"entries,omitempty"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// TotalEntries is the number of classified lines.
	TotalEntries int `json:"total_entries"`

	// ByLevel counts entries per level.
	ByLevel aggregate.LevelCounts `json:"level_counts"`

	// Steps holds per-step counts in first-seen order.
	Steps []aggregate.StepCounts `json:"steps"`

	// FilesAnalyzed is the number of files read.
	FilesAnalyzed int `json:"files_analyzed"`

	// FilesSkipped is the number of files that could not be read.
	FilesSkipped int `json:"files_skipped"`

	// LinesProcessed is the total number of lines read.
	LinesProcessed int `json:"lines_processed"`

	// LinesSkipped is the number of undecodable lines dropped.
	LinesSkipped int `json:"lines_skipped"`

	// LinesTruncated is the number of lines cut at the maximum line size.
	LinesTruncated int `json:"lines_truncated,omitempty"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Sources lists the log files that were analyzed.
	Sources []string `json:"sources"`

	// Skipped lists the files that could not be analyzed.
	Skipped []SkippedFile `json:"skipped,omitempty"`

	// Encoding is the input text encoding.
	Encoding string `json:"encoding"`

	// Detailed is true when individual entries were retained.
	Detailed bool `json:"detailed"`

	// Interrupted is true when the run stopped early; counts are partial.
	Interrupted bool `json:"interrupted,omitempty"`

	// AnalyzedAt is when the analysis finished.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration"`
}

// SkippedFile names a file that was skipped and why.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// NewReport creates a Report from analysis results. An empty runID is
// replaced by a fresh random one.
func NewReport(result *analyzer.Result, runID string) *Report {
	if runID == "" {
		runID = uuid.NewString()
	}

	stats := result.Stats
	if stats == nil {
		stats = &aggregate.Stats{}
	}

	report := &Report{
		Summary: Summary{
			TotalEntries:   stats.Total,
			ByLevel:        stats.ByLevel,
			Steps:          stats.Steps,
			FilesAnalyzed:  len(result.Metadata.Sources),
			FilesSkipped:   len(result.Metadata.Skipped),
			LinesProcessed: result.Metadata.LinesRead,
			LinesSkipped:   result.Metadata.LinesSkipped,
			LinesTruncated: result.Metadata.LinesTruncated,
		},
		Entries: stats.Entries,
		Metadata: Metadata{
			RunID:       runID,
			Sources:     result.Metadata.Sources,
			Encoding:    result.Metadata.Encoding,
			Detailed:    result.Metadata.Detailed,
			Interrupted: result.Metadata.Interrupted,
			AnalyzedAt:  result.Metadata.EndTime,
			Duration:    result.Metadata.Duration(),
		},
	}

	for _, skipped := range result.Metadata.Skipped {
		report.Metadata.Skipped = append(report.Metadata.Skipped, SkippedFile{
			Path:   skipped.Path,
			Reason: skipped.Err.Error(),
		})
	}

	return report
}

// HasIssues returns true if any CRITICAL or ERROR entries were found.
func (r *Report) HasIssues() bool {
	return r.Summary.ByLevel.Get(parser.LevelCritical) > 0 ||
		r.Summary.ByLevel.Get(parser.LevelError) > 0
}

// HasLevelAtLeast returns true if any entry is at least as severe as level.
func (r *Report) HasLevelAtLeast(level parser.Level) bool {
	for _, l := range parser.Levels() {
		if l <= level && r.Summary.ByLevel.Get(l) > 0 {
			return true
		}
	}
	return false
}

// HasTaggedSteps reports whether any entry carried a step tag.
func (r *Report) HasTaggedSteps() bool {
	for _, sc := range r.Summary.Steps {
		if sc.Step.Tagged {
			return true
		}
	}
	return false
}

// EntriesForLevel returns the detailed entries of one level in arrival order.
func (r *Report) EntriesForLevel(level parser.Level) []parser.LogEntry {
	var out []parser.LogEntry
	for _, e := range r.Entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
