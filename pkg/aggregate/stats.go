// Package aggregate accumulates classified log entries into run-wide
// statistics.
package aggregate

import (
	"encoding/json"

	"github.com/ccollicutt/convlog/pkg/parser"
)

// LevelCounts holds one counter per level, indexed by parser.Level.
// All three levels are always present.
type LevelCounts [parser.NumLevels]int

// Get returns the count for level.
func (c LevelCounts) Get(level parser.Level) int {
	if !level.Valid() {
		return 0
	}
	return c[level]
}

// Total returns the sum over all levels.
func (c LevelCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// MarshalJSON encodes the counts as an object keyed by level name.
func (c LevelCounts) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, parser.NumLevels)
	for _, level := range parser.Levels() {
		m[level.String()] = c[level]
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON. Missing levels are zero.
func (c *LevelCounts) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = LevelCounts{}
	for name, n := range m {
		level, err := parser.ParseLevel(name)
		if err != nil {
			return err
		}
		c[level] = n
	}
	return nil
}

// StepCounts is the per-level breakdown for one step.
type StepCounts struct {
	Step   parser.Step `json:"step"`
	Counts LevelCounts `json:"counts"`
}

// Stats is the cumulative result of a run.
type Stats struct {
	// Total is the number of entries accepted.
	Total int `json:"total"`

	// ByLevel counts entries per level.
	ByLevel LevelCounts `json:"by_level"`

	// Steps holds every distinct step in first-seen order with its counts.
	Steps []StepCounts `json:"steps"`

	// Entries is every accepted entry in arrival order. It is only
	// populated in detailed mode.
	Entries []parser.LogEntry `json:"entries,omitempty"`
}

// StepOrder returns the distinct steps in first-seen order.
func (s *Stats) StepOrder() []parser.Step {
	order := make([]parser.Step, len(s.Steps))
	for i, sc := range s.Steps {
		order[i] = sc.Step
	}
	return order
}

// CountsFor returns the per-level counts of step.
func (s *Stats) CountsFor(step parser.Step) (LevelCounts, bool) {
	for _, sc := range s.Steps {
		if sc.Step == step {
			return sc.Counts, true
		}
	}
	return LevelCounts{}, false
}

// HasTaggedSteps reports whether any entry carried a step tag.
func (s *Stats) HasTaggedSteps() bool {
	for _, sc := range s.Steps {
		if sc.Step.Tagged {
			return true
		}
	}
	return false
}

// EntriesForFile returns the detailed entries that came from filename,
// in arrival order.
func (s *Stats) EntriesForFile(filename string) []parser.LogEntry {
	var out []parser.LogEntry
	for _, e := range s.Entries {
		if e.Filename == filename {
			out = append(out, e)
		}
	}
	return out
}

// EntriesForLevel returns the detailed entries of one level, in arrival order.
func (s *Stats) EntriesForLevel(level parser.Level) []parser.LogEntry {
	var out []parser.LogEntry
	for _, e := range s.Entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Files returns the distinct filenames of the detailed entries in arrival order.
func (s *Stats) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, e := range s.Entries {
		if !seen[e.Filename] {
			seen[e.Filename] = true
			files = append(files, e.Filename)
		}
	}
	return files
}

// Clone returns a deep copy that shares nothing with s.
func (s *Stats) Clone() *Stats {
	c := &Stats{
		Total:   s.Total,
		ByLevel: s.ByLevel,
	}
	if s.Steps != nil {
		c.Steps = append([]StepCounts(nil), s.Steps...)
	}
	if s.Entries != nil {
		c.Entries = append([]parser.LogEntry(nil), s.Entries...)
	}
	return c
}
