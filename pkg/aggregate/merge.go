package aggregate

// Merge combines the statistics of private aggregators into one.
//
// parts must be given in the order their files would have been processed
// sequentially. Counts are summed, steps keep their first-seen order across
// parts, and entries are concatenated part by part, so the result is what a
// single Aggregator fed the same files in the same order would hold. Nil parts
// are skipped.
func Merge(parts ...*Stats) *Stats {
	merged := New(false)
	for _, part := range parts {
		merged.Absorb(part)
	}
	return merged.Snapshot()
}
