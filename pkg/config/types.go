// Package config provides configuration loading and validation for convlog.
package config

import (
	"time"

	"github.com/ccollicutt/convlog/pkg/parser"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Inputs lists log files, directories or glob patterns to analyze.
	Inputs []string `yaml:"inputs"`

	// Recursive descends into subdirectories of directory inputs.
	Recursive bool `yaml:"recursive,omitempty"`

	// Extensions selects which files a directory input contributes.
	Extensions []string `yaml:"extensions,omitempty"`

	// Encoding is the text encoding of the log files (IANA name).
	Encoding string `yaml:"encoding,omitempty"`

	// OnDecodeError is what happens to undecodable lines:
	// replace, skip_line, skip_file or abort.
	OnDecodeError string `yaml:"on_decode_error,omitempty"`

	// OnFileError is what happens to unreadable files: skip or abort.
	OnFileError string `yaml:"on_file_error,omitempty"`

	// MatchMode selects how level keywords are matched: substring or word.
	MatchMode MatchMode `yaml:"match_mode,omitempty"`

	// Workers is the number of files analyzed concurrently.
	Workers int `yaml:"workers,omitempty"`

	Output OutputConfig `yaml:"output"`

	// FailOn sets the lowest level that makes a run exit non-zero.
	FailOn FailOn `yaml:"fail_on,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// OutputConfig controls where and how reports are written.
type OutputConfig struct {
	// Directory receives the report files.
	Directory string `yaml:"directory"`

	// Formats lists report formats: csv, markdown, json, both or all.
	Formats []string `yaml:"formats"`

	// Detailed also writes the per-entry reports.
	Detailed bool `yaml:"detailed,omitempty"`

	// MaxDetailedEntries caps the entries listed per level in detailed
	// Markdown reports.
	MaxDetailedEntries int `yaml:"max_detailed_entries,omitempty"`

	// Console selects the summary printed to stdout: text, json or none.
	Console string `yaml:"console,omitempty"`
}

// MatchMode selects the keyword matching strategy.
type MatchMode string

const (
	// MatchSubstring finds level names anywhere in the line, ignoring case.
	MatchSubstring MatchMode = "substring"
	// MatchWord requires level names to stand as whole words.
	MatchWord MatchMode = "word"
)

// FailOn is the severity threshold for a failing exit status.
type FailOn string

const (
	FailOnNone     FailOn = "none"
	FailOnWarning  FailOn = "warning"
	FailOnError    FailOn = "error"
	FailOnCritical FailOn = "critical"
)

// Level returns the threshold level. ok is false for FailOnNone.
func (f FailOn) Level() (level parser.Level, ok bool) {
	switch f {
	case FailOnWarning:
		return parser.LevelWarning, true
	case FailOnError:
		return parser.LevelError, true
	case FailOnCritical:
		return parser.LevelCritical, true
	default:
		return 0, false
	}
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires only when CRITICAL or ERROR entries were found (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_issues" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
