package parser

import (
	"encoding/json"
	"testing"
)

func TestClassify_Levels(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLevel Level
		wantOK    bool
	}{
		{"error upper", "2024-01-15 ERROR: Test error", LevelError, true},
		{"error lower", "something error happened", LevelError, true},
		{"error mixed", "ErRoR in module", LevelError, true},
		{"error as substring", "ERRORS were found", LevelError, true},
		{"warning", "WARNING: Field 'phone' has unusual format", LevelWarning, true},
		{"critical", "critical: disk full", LevelCritical, true},
		{"info ignored", "2024-01-15 INFO: This should be ignored", 0, false},
		{"empty", "", 0, false},
		{"near miss", "ERR WARN CRIT", 0, false},
		{"warning escalated to error", "WARNING: escalated to ERROR", LevelError, true},
		{"error before critical", "ERROR then CRITICAL", LevelCritical, true},
		{"warning and critical", "warning ... Critical", LevelCritical, true},
		{"critical and warning", "CRITICAL ... WARNING", LevelCritical, true},
		{"all three", "warning error critical", LevelCritical, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := Classify(tt.line, "test.log", 7)
			if ok != tt.wantOK {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if entry.Level != tt.wantLevel {
				t.Errorf("Classify(%q) level = %s, want %s", tt.line, entry.Level, tt.wantLevel)
			}
			if entry.Message != tt.line {
				t.Errorf("Message = %q, want full line %q", entry.Message, tt.line)
			}
			if entry.LineNum != 7 || entry.Filename != "test.log" {
				t.Errorf("metadata = (%s, %d), want (test.log, 7)", entry.Filename, entry.LineNum)
			}
		})
	}
}

func TestClassify_Step(t *testing.T) {
	entry, ok := Classify("[STEP:DataLoad] CRITICAL: x", "run.log", 1)
	if !ok {
		t.Fatal("Classify() returned no entry")
	}
	if entry.Step != NewStep("DataLoad") {
		t.Errorf("Step = %+v, want DataLoad", entry.Step)
	}
	if entry.Level != LevelCritical {
		t.Errorf("Level = %s, want CRITICAL", entry.Level)
	}

	entry, ok = Classify("ERROR: no tag", "run.log", 2)
	if !ok {
		t.Fatal("Classify() returned no entry")
	}
	if entry.Step != NoStep {
		t.Errorf("Step = %+v, want NoStep", entry.Step)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	line := "[STEP:X] WARNING then ERROR"
	first, _ := Classify(line, "a.log", 3)
	for i := 0; i < 10; i++ {
		again, _ := Classify(line, "a.log", 3)
		if again != first {
			t.Fatalf("Classify() not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestWordClassifier(t *testing.T) {
	c := NewWordClassifier()
	tests := []struct {
		line      string
		wantLevel Level
		wantOK    bool
	}{
		{"ERROR: failed", LevelError, true},
		{"an error occurred", LevelError, true},
		{"ERRORS were found", 0, false},
		{"warnings_total=3", 0, false},
		{"[WARNING] x, critical-path error", LevelCritical, true},
	}

	for _, tt := range tests {
		entry, ok := c.Classify(tt.line, "f", 1)
		if ok != tt.wantOK {
			t.Errorf("Classify(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			continue
		}
		if ok && entry.Level != tt.wantLevel {
			t.Errorf("Classify(%q) level = %s, want %s", tt.line, entry.Level, tt.wantLevel)
		}
	}
}

func TestClassifierFunc(t *testing.T) {
	called := false
	var c Classifier = ClassifierFunc(func(line, filename string, lineNum int) (LogEntry, bool) {
		called = true
		return LogEntry{Message: line, Filename: filename, LineNum: lineNum, Level: LevelWarning}, true
	})

	entry, ok := c.Classify("anything", "f", 9)
	if !called || !ok || entry.LineNum != 9 {
		t.Errorf("ClassifierFunc not invoked correctly: %+v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"CRITICAL", LevelCritical, false},
		{"error", LevelError, false},
		{" Warning ", LevelWarning, false},
		{"info", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLevels_PrecedenceOrder(t *testing.T) {
	levels := Levels()
	want := []string{"CRITICAL", "ERROR", "WARNING"}
	if len(levels) != len(want) {
		t.Fatalf("Levels() = %v", levels)
	}
	for i, l := range levels {
		if l.String() != want[i] {
			t.Errorf("Levels()[%d] = %s, want %s", i, l, want[i])
		}
	}
}

func TestLogEntry_JSON(t *testing.T) {
	tagged := LogEntry{LineNum: 1, Filename: "a.log", Step: NewStep("Load"), Level: LevelError, Message: "ERROR x"}
	data, err := json.Marshal(tagged)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"line_number":1,"filename":"a.log","step":"Load","level":"ERROR","message":"ERROR x"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	untagged := LogEntry{LineNum: 2, Filename: "a.log", Level: LevelWarning, Message: "WARNING y"}
	data, err = json.Marshal(untagged)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded LogEntry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Step != NoStep {
		t.Errorf("NoStep did not survive JSON: %+v", decoded.Step)
	}
}

func BenchmarkClassify(b *testing.B) {
	line := "2024-01-15 10:00:04 [STEP:DataTransform] INFO: row 123456 processed without incident"
	for i := 0; i < b.N; i++ {
		Classify(line, "bench.log", i+1)
	}
}
