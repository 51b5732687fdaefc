package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/convlog/pkg/parser"
)

var conversionLines = []string{
	"[STEP:DataValidation] WARNING: Field 'phone' has unusual format",
	"[STEP:DataValidation] ERROR: Required field 'email' is missing",
	"[STEP:DataTransform] ERROR: Unable to parse date",
	"[STEP:DataLoad] CRITICAL: Database connection timeout",
	"[STEP:DataLoad] ERROR: Failed to insert record",
}

func feed(agg *Aggregator, filename string, lines []string) {
	for i, line := range lines {
		if entry, ok := parser.Classify(line, filename, i+1); ok {
			agg.Accept(entry)
		}
	}
}

func TestAggregator_ConversionScenario(t *testing.T) {
	agg := New(false)
	feed(agg, "conversion.log", conversionLines)
	stats := agg.Snapshot()

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, LevelCounts{1, 3, 1}, stats.ByLevel)
	assert.Equal(t, 1, stats.ByLevel.Get(parser.LevelCritical))
	assert.Equal(t, 3, stats.ByLevel.Get(parser.LevelError))
	assert.Equal(t, 1, stats.ByLevel.Get(parser.LevelWarning))

	assert.Equal(t, []parser.Step{
		parser.NewStep("DataValidation"),
		parser.NewStep("DataTransform"),
		parser.NewStep("DataLoad"),
	}, stats.StepOrder())

	load, ok := stats.CountsFor(parser.NewStep("DataLoad"))
	require.True(t, ok)
	assert.Equal(t, 1, load.Get(parser.LevelCritical))
	assert.Equal(t, 1, load.Get(parser.LevelError))
	assert.Equal(t, 0, load.Get(parser.LevelWarning))

	assert.Empty(t, stats.Entries)
}

func TestAggregator_EmptyRun(t *testing.T) {
	stats := New(true).Snapshot()

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, LevelCounts{}, stats.ByLevel)
	assert.Empty(t, stats.Steps)
	assert.Empty(t, stats.Entries)
}

func TestAggregator_NoStepParticipatesInOrder(t *testing.T) {
	agg := New(false)
	feed(agg, "a.log", []string{
		"ERROR untagged",
		"[STEP:unspecified] WARNING tagged with sentinel-like name",
		"CRITICAL untagged again",
	})
	stats := agg.Snapshot()

	require.Len(t, stats.Steps, 2)
	assert.Equal(t, parser.NoStep, stats.Steps[0].Step)
	assert.Equal(t, parser.NewStep("unspecified"), stats.Steps[1].Step)

	none, ok := stats.CountsFor(parser.NoStep)
	require.True(t, ok)
	assert.Equal(t, LevelCounts{1, 1, 0}, none)
	assert.True(t, stats.HasTaggedSteps())
}

func TestAggregator_StepOrderLaw(t *testing.T) {
	steps := []string{"C", "A", "C", "B", "A", "D", "B"}
	agg := New(false)
	for i, s := range steps {
		agg.Accept(parser.LogEntry{LineNum: i + 1, Filename: "f", Step: parser.NewStep(s), Level: parser.LevelError})
	}

	var names []string
	for _, step := range agg.Snapshot().StepOrder() {
		names = append(names, step.Name)
	}
	assert.Equal(t, []string{"C", "A", "B", "D"}, names)
}

func TestAggregator_EveryStepHasAllLevels(t *testing.T) {
	agg := New(false)
	agg.Accept(parser.LogEntry{LineNum: 1, Step: parser.NewStep("Only"), Level: parser.LevelWarning})

	counts, ok := agg.Snapshot().CountsFor(parser.NewStep("Only"))
	require.True(t, ok)
	for _, level := range parser.Levels() {
		want := 0
		if level == parser.LevelWarning {
			want = 1
		}
		assert.Equal(t, want, counts.Get(level), level.String())
	}

	_, ok = agg.Snapshot().CountsFor(parser.NewStep("Missing"))
	assert.False(t, ok)
}

func TestAggregator_Deterministic(t *testing.T) {
	first := New(true)
	second := New(true)
	feed(first, "a.log", conversionLines)
	feed(first, "b.log", conversionLines[:2])
	feed(second, "a.log", conversionLines)
	feed(second, "b.log", conversionLines[:2])

	assert.Equal(t, first.Snapshot(), second.Snapshot())

	a, err := json.Marshal(first.Snapshot())
	require.NoError(t, err)
	b, err := json.Marshal(second.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAggregator_DetailedKeepsArrivalOrderAcrossFiles(t *testing.T) {
	agg := New(true)
	feed(agg, "second.log", []string{"ERROR s1", "info", "WARNING s3"})
	feed(agg, "first.log", []string{"CRITICAL f1"})
	stats := agg.Snapshot()

	require.Len(t, stats.Entries, 3)
	assert.Equal(t, "second.log", stats.Entries[0].Filename)
	assert.Equal(t, 1, stats.Entries[0].LineNum)
	assert.Equal(t, "second.log", stats.Entries[1].Filename)
	assert.Equal(t, 3, stats.Entries[1].LineNum)
	assert.Equal(t, "first.log", stats.Entries[2].Filename)

	assert.Equal(t, []string{"second.log", "first.log"}, stats.Files())
	assert.Len(t, stats.EntriesForFile("second.log"), 2)
	assert.Len(t, stats.EntriesForFile("missing.log"), 0)
	assert.Len(t, stats.EntriesForLevel(parser.LevelCritical), 1)
}

func TestAggregator_SummaryModeStaysEmpty(t *testing.T) {
	agg := New(false)
	for i := 0; i < 200000; i++ {
		agg.Accept(parser.LogEntry{
			LineNum:  i + 1,
			Filename: "big.log",
			Step:     parser.NewStep([]string{"A", "B", "C"}[i%3]),
			Level:    parser.Level(i % parser.NumLevels),
			Message:  "ERROR synthetic",
		})
	}
	stats := agg.Snapshot()

	assert.Equal(t, 200000, stats.Total)
	assert.Nil(t, stats.Entries)
	assert.Len(t, stats.Steps, 3)
	assert.False(t, agg.Detailed())
}

func TestAggregator_SnapshotHasNoLag(t *testing.T) {
	agg := New(false)
	view := agg.Snapshot()
	agg.Accept(parser.LogEntry{LineNum: 1, Level: parser.LevelError})

	assert.Equal(t, 1, view.Total)
	assert.Equal(t, 1, agg.Snapshot().Total)
}

func TestStats_Clone(t *testing.T) {
	agg := New(true)
	feed(agg, "a.log", conversionLines)
	clone := agg.Snapshot().Clone()

	agg.Accept(parser.LogEntry{LineNum: 99, Step: parser.NewStep("DataLoad"), Level: parser.LevelWarning})

	assert.Equal(t, 5, clone.Total)
	assert.Len(t, clone.Entries, 5)
	load, _ := clone.CountsFor(parser.NewStep("DataLoad"))
	assert.Equal(t, 0, load.Get(parser.LevelWarning))
}

func TestLevelCounts_JSON(t *testing.T) {
	data, err := json.Marshal(LevelCounts{1, 3, 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"CRITICAL":1,"ERROR":3,"WARNING":1}`, string(data))

	var decoded LevelCounts
	require.NoError(t, json.Unmarshal([]byte(`{"ERROR":2}`), &decoded))
	assert.Equal(t, LevelCounts{0, 2, 0}, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"INFO":2}`), &decoded))
}
