// Package parser provides log line classification, step tag extraction and
// streaming line sources.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is the severity bucket of a classified line.
// Lower values take precedence when a line carries several keywords.
type Level uint8

const (
	LevelCritical Level = iota
	LevelError
	LevelWarning
)

// NumLevels is the number of recognized levels.
const NumLevels = 3

var levelNames = [NumLevels]string{"CRITICAL", "ERROR", "WARNING"}

// Levels returns all levels in precedence order (CRITICAL first).
func Levels() []Level {
	return []Level{LevelCritical, LevelError, LevelWarning}
}

// String returns the upper-case keyword for the level.
func (l Level) String() string {
	if int(l) < NumLevels {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

// Valid reports whether l is one of the three recognized levels.
func (l Level) Valid() bool {
	return int(l) < NumLevels
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown level %q (must be critical, error, or warning)", s)
}

// Step identifies the module/step a line was tagged with.
// The zero value is NoStep.
type Step struct {
	// Name is the text between "[STEP:" and "]", verbatim.
	Name string

	// Tagged is false only for NoStep.
	Tagged bool
}

// NoStep is the sentinel for lines without a step tag. It never compares equal
// to a tagged step, whatever that step's name is.
var NoStep = Step{}

// NewStep returns a tagged step with the given name.
func NewStep(name string) Step {
	return Step{Name: name, Tagged: true}
}

// String returns the step name, or "(no step)" for NoStep.
func (s Step) String() string {
	if !s.Tagged {
		return "(no step)"
	}
	return s.Name
}

// MarshalJSON encodes tagged steps as their name and NoStep as null.
func (s Step) MarshalJSON() ([]byte, error) {
	if !s.Tagged {
		return []byte("null"), nil
	}
	return json.Marshal(s.Name)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Step) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NoStep
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = NewStep(name)
	return nil
}

// LogEntry is one classified log line.
type LogEntry struct {
	// LineNum is the 1-based line number in the source file.
	LineNum int `json:"line_number"`

	// Filename identifies the source the line came from.
	Filename string `json:"filename"`

	// Step is the step tag, or NoStep.
	Step Step `json:"step"`

	// Level is the single severity assigned to the line.
	Level Level `json:"level"`

	// Message is the full original line.
	Message string `json:"message"`
}

// LogLine is a decoded line handed out by a LineSource.
type LogLine struct {
	// Content is the line text without its terminator.
	Content string

	// Source is the name of the file or stream the line came from.
	Source string

	// LineNum is the 1-based line number in the source.
	LineNum int

	// Truncated is set when the line was longer than MaxLineSize and only
	// its beginning is in Content.
	Truncated bool
}
