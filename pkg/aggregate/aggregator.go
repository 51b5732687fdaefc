package aggregate

import "github.com/ccollicutt/convlog/pkg/parser"

// Aggregator accumulates entries into Stats.
//
// An Aggregator is owned by a single goroutine for the lifetime of a run and
// is never reset; start a new run with a new Aggregator. In summary mode its
// memory is proportional to the number of distinct steps only.
type Aggregator struct {
	detailed  bool
	stats     Stats
	stepIndex map[parser.Step]int
}

// New creates an empty Aggregator. With detailed set, every accepted entry
// is retained.
func New(detailed bool) *Aggregator {
	return &Aggregator{
		detailed:  detailed,
		stepIndex: make(map[parser.Step]int),
	}
}

// Detailed reports whether entries are retained.
func (a *Aggregator) Detailed() bool {
	return a.detailed
}

// Accept adds one entry.
func (a *Aggregator) Accept(entry parser.LogEntry) {
	a.stats.Total++
	a.stats.ByLevel[entry.Level]++

	idx, ok := a.stepIndex[entry.Step]
	if !ok {
		idx = len(a.stats.Steps)
		a.stepIndex[entry.Step] = idx
		a.stats.Steps = append(a.stats.Steps, StepCounts{Step: entry.Step})
	}
	a.stats.Steps[idx].Counts[entry.Level]++

	if a.detailed {
		a.stats.Entries = append(a.stats.Entries, entry)
	}
}

// Absorb folds the statistics of a private aggregator into a, as if its
// entries had been accepted here in order. Entries carried by part are
// appended as they are.
func (a *Aggregator) Absorb(part *Stats) {
	if part == nil {
		return
	}

	a.stats.Total += part.Total
	for i, n := range part.ByLevel {
		a.stats.ByLevel[i] += n
	}

	for _, sc := range part.Steps {
		idx, ok := a.stepIndex[sc.Step]
		if !ok {
			idx = len(a.stats.Steps)
			a.stepIndex[sc.Step] = idx
			a.stats.Steps = append(a.stats.Steps, StepCounts{Step: sc.Step})
		}
		for i, n := range sc.Counts {
			a.stats.Steps[idx].Counts[i] += n
		}
	}

	a.stats.Entries = append(a.stats.Entries, part.Entries...)
}

// Snapshot returns a view of the current statistics. The view reflects every
// entry accepted so far and keeps changing as more are accepted; callers must
// not modify it. Use Stats.Clone for an independent copy.
func (a *Aggregator) Snapshot() *Stats {
	return &a.stats
}
