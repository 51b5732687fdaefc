package parser

import "regexp"

// Classifier turns a raw line into at most one LogEntry.
// Implementations must be pure: the same input always yields the same output.
type Classifier interface {
	// Classify returns the entry for line and true, or false when the line
	// carries no recognized severity keyword.
	Classify(line, filename string, lineNum int) (LogEntry, bool)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(line, filename string, lineNum int) (LogEntry, bool)

// Classify calls f.
func (f ClassifierFunc) Classify(line, filename string, lineNum int) (LogEntry, bool) {
	return f(line, filename, lineNum)
}

// KeywordClassifier matches the level keywords as case-insensitive substrings.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the default classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify implements Classifier.
func (KeywordClassifier) Classify(line, filename string, lineNum int) (LogEntry, bool) {
	for _, level := range Levels() {
		if containsFold(line, levelNames[level]) {
			return newEntry(line, filename, lineNum, level), true
		}
	}
	return LogEntry{}, false
}

// WordClassifier matches the level keywords as whole words only, so that
// "ERRORS" or "warnings_total" do not count.
type WordClassifier struct {
	patterns [NumLevels]*regexp.Regexp
}

// NewWordClassifier returns a classifier using word-boundary matching.
func NewWordClassifier() *WordClassifier {
	c := &WordClassifier{}
	for _, level := range Levels() {
		c.patterns[level] = regexp.MustCompile(`(?i)\b` + levelNames[level] + `\b`)
	}
	return c
}

// Classify implements Classifier.
func (c *WordClassifier) Classify(line, filename string, lineNum int) (LogEntry, bool) {
	for _, level := range Levels() {
		if c.patterns[level].MatchString(line) {
			return newEntry(line, filename, lineNum, level), true
		}
	}
	return LogEntry{}, false
}

var defaultClassifier = KeywordClassifier{}

// Classify classifies a single line with the default keyword classifier.
// Precedence is CRITICAL > ERROR > WARNING regardless of keyword position.
func Classify(line, filename string, lineNum int) (LogEntry, bool) {
	return defaultClassifier.Classify(line, filename, lineNum)
}

func newEntry(line, filename string, lineNum int, level Level) LogEntry {
	return LogEntry{
		LineNum:  lineNum,
		Filename: filename,
		Step:     ExtractStep(line),
		Level:    level,
		Message:  line,
	}
}

// containsFold reports whether s contains the upper-case ASCII token,
// ignoring ASCII case. It does not allocate.
func containsFold(s, token string) bool {
	n := len(token)
	for i := 0; i+n <= len(s); i++ {
		if hasPrefixFold(s[i:], token) {
			return true
		}
	}
	return false
}

// hasPrefixFold reports whether s starts with the upper-case ASCII token,
// ignoring ASCII case.
func hasPrefixFold(s, token string) bool {
	if len(s) < len(token) {
		return false
	}
	for j := 0; j < len(token); j++ {
		c := s[j]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != token[j] {
			return false
		}
	}
	return true
}
