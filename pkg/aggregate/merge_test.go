package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccollicutt/convlog/pkg/parser"
)

func TestMerge_EqualsSequential(t *testing.T) {
	files := map[string][]string{
		"a.log": {"[STEP:B] ERROR a1", "WARNING a2", "[STEP:A] CRITICAL a3"},
		"b.log": {"[STEP:C] ERROR b1", "[STEP:A] WARNING b2"},
		"c.log": {"nothing here"},
		"d.log": {"[STEP:B] warning d1", "[STEP:D] error d2"},
	}
	order := []string{"a.log", "b.log", "c.log", "d.log"}

	for _, detailed := range []bool{false, true} {
		sequential := New(detailed)
		var parts []*Stats
		for _, name := range order {
			feed(sequential, name, files[name])

			private := New(detailed)
			feed(private, name, files[name])
			parts = append(parts, private.Snapshot())
		}

		assert.Equal(t, sequential.Snapshot(), Merge(parts...), "detailed=%v", detailed)
	}
}

func TestMerge_StepOrderFollowsPartOrder(t *testing.T) {
	first := New(false)
	first.Accept(parser.LogEntry{Step: parser.NewStep("X"), Level: parser.LevelError})
	second := New(false)
	second.Accept(parser.LogEntry{Step: parser.NewStep("Y"), Level: parser.LevelError})
	second.Accept(parser.LogEntry{Step: parser.NewStep("X"), Level: parser.LevelWarning})

	merged := Merge(first.Snapshot(), second.Snapshot())

	assert.Equal(t, []parser.Step{parser.NewStep("X"), parser.NewStep("Y")}, merged.StepOrder())
	x, _ := merged.CountsFor(parser.NewStep("X"))
	assert.Equal(t, LevelCounts{0, 1, 1}, x)
	assert.Equal(t, 3, merged.Total)
}

func TestMerge_Empty(t *testing.T) {
	merged := Merge()
	assert.Equal(t, 0, merged.Total)
	assert.Empty(t, merged.Steps)

	merged = Merge(nil, New(false).Snapshot())
	assert.Equal(t, 0, merged.Total)
}

func TestAggregator_Absorb(t *testing.T) {
	agg := New(true)
	feed(agg, "a.log", []string{"[STEP:A] ERROR one"})

	private := New(true)
	feed(private, "b.log", []string{"[STEP:B] WARNING two", "[STEP:A] CRITICAL three"})
	agg.Absorb(private.Snapshot())
	agg.Absorb(nil)

	stats := agg.Snapshot()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, []parser.Step{parser.NewStep("A"), parser.NewStep("B")}, stats.StepOrder())
	assert.Len(t, stats.Entries, 3)

	// Steps seen after absorbing are still appended in order
	agg.Accept(parser.LogEntry{Step: parser.NewStep("C"), Level: parser.LevelError})
	assert.Equal(t, parser.NewStep("C"), agg.Snapshot().Steps[2].Step)
}
