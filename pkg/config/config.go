package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/convlog/pkg/analyzer"
	"github.com/ccollicutt/convlog/pkg/output"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FromEnvironment returns the default configuration with environment
// overrides applied. It is used when no config file is given.
func FromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	return cfg, nil
}

// Validate checks a configuration for errors and fills in defaults for
// omitted optional values. Inputs may be empty; they can be supplied on the
// command line.
func Validate(cfg *Config) error {
	if cfg.Encoding == "" {
		cfg.Encoding = parser.DefaultEncoding
	}
	if _, err := parser.LookupEncoding(cfg.Encoding); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	if cfg.OnDecodeError == "" {
		cfg.OnDecodeError = DefaultDecodePolicy
	}
	if err := analyzer.DecodePolicy(cfg.OnDecodeError).Validate(); err != nil {
		return fmt.Errorf("on_decode_error: %w", err)
	}

	if cfg.OnFileError == "" {
		cfg.OnFileError = DefaultFilePolicy
	}
	if err := analyzer.FilePolicy(cfg.OnFileError).Validate(); err != nil {
		return fmt.Errorf("on_file_error: %w", err)
	}

	switch cfg.MatchMode {
	case "":
		cfg.MatchMode = MatchSubstring
	case MatchSubstring, MatchWord:
	default:
		return fmt.Errorf("match_mode: invalid value %q (must be substring or word)", cfg.MatchMode)
	}

	if cfg.Workers < 0 {
		return errors.New("workers: must be >= 0")
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), parser.DefaultExtensions...)
	}

	if err := validateOutput(&cfg.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	switch cfg.FailOn {
	case "":
		cfg.FailOn = FailOnNone
	case FailOnNone, FailOnWarning, FailOnError, FailOnCritical:
	default:
		return fmt.Errorf("fail_on: invalid value %q (must be none, warning, error, or critical)", cfg.FailOn)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateOutput(out *OutputConfig) error {
	if out.Directory == "" {
		out.Directory = DefaultOutputDir
	}

	if len(out.Formats) == 0 {
		out.Formats = []string{output.FormatCSV}
	}
	formats, err := output.ParseFormats(strings.Join(out.Formats, ","))
	if err != nil {
		return fmt.Errorf("formats: %w", err)
	}
	out.Formats = formats

	if out.MaxDetailedEntries < 0 {
		return errors.New("max_detailed_entries: must be >= 0")
	}
	if out.MaxDetailedEntries == 0 {
		out.MaxDetailedEntries = output.DefaultMaxEntriesPerLevel
	}

	switch out.Console {
	case "":
		out.Console = DefaultConsole
	case "text", "json", "none":
	default:
		return fmt.Errorf("console: invalid value %q (must be text, json, or none)", out.Console)
	}

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever:
		default:
			return fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnIssues
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
