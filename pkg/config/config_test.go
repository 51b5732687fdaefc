package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ccollicutt/convlog/pkg/parser"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
inputs:
  - /var/log/conversion/
  - /tmp/extra.log
recursive: true
encoding: latin1
on_decode_error: skip_line
match_mode: word
workers: 4
output:
  directory: out
  formats: [both]
  detailed: true
  max_detailed_entries: 25
  console: json
fail_on: error
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Inputs) != 2 {
		t.Errorf("Inputs = %d, want 2", len(cfg.Inputs))
	}
	if !cfg.Recursive {
		t.Error("Recursive = false, want true")
	}
	if cfg.Encoding != "latin1" {
		t.Errorf("Encoding = %q, want latin1", cfg.Encoding)
	}
	if cfg.OnDecodeError != "skip_line" {
		t.Errorf("OnDecodeError = %q, want skip_line", cfg.OnDecodeError)
	}
	if cfg.OnFileError != DefaultFilePolicy {
		t.Errorf("OnFileError = %q, want default %q", cfg.OnFileError, DefaultFilePolicy)
	}
	if cfg.MatchMode != MatchWord {
		t.Errorf("MatchMode = %q, want word", cfg.MatchMode)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if want := []string{"csv", "markdown"}; !reflect.DeepEqual(cfg.Output.Formats, want) {
		t.Errorf("Formats = %v, want %v", cfg.Output.Formats, want)
	}
	if !cfg.Output.Detailed || cfg.Output.MaxDetailedEntries != 25 {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.Output.Console != "json" {
		t.Errorf("Console = %q, want json", cfg.Output.Console)
	}
	if cfg.FailOn != FailOnError {
		t.Errorf("FailOn = %q, want error", cfg.FailOn)
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "inputs: [app.log]\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Encoding != parser.DefaultEncoding {
		t.Errorf("Encoding = %q, want %q", cfg.Encoding, parser.DefaultEncoding)
	}
	if cfg.Output.Directory != DefaultOutputDir {
		t.Errorf("Directory = %q, want %q", cfg.Output.Directory, DefaultOutputDir)
	}
	if !reflect.DeepEqual(cfg.Output.Formats, []string{"csv"}) {
		t.Errorf("Formats = %v, want [csv]", cfg.Output.Formats)
	}
	if !reflect.DeepEqual(cfg.Extensions, []string{".log", ".txt"}) {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1", cfg.Workers)
	}
	if cfg.FailOn != FailOnNone {
		t.Errorf("FailOn = %q, want none", cfg.FailOn)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	content := `invalid: yaml: content: [`
	path := writeTempFile(t, "invalid.yaml", content)
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvEncoding, "utf-16le")
	t.Setenv(EnvOutputDir, "/tmp/reports")
	t.Setenv(EnvWorkers, "3")

	path := writeTempFile(t, "config.yaml", "inputs: [a.log]\nencoding: latin1\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Encoding != "utf-16le" {
		t.Errorf("Encoding = %q, want utf-16le", cfg.Encoding)
	}
	if cfg.Output.Directory != "/tmp/reports" {
		t.Errorf("Directory = %q", cfg.Output.Directory)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
}

func TestLoad_InvalidWorkersEnv(t *testing.T) {
	t.Setenv(EnvWorkers, "many")

	path := writeTempFile(t, "config.yaml", "inputs: [a.log]\n")
	if _, err := Load(context.Background(), path); err == nil {
		t.Error("Load() expected error for non-numeric workers")
	}
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv(EnvInputs, "a.log, logs/ ,")

	cfg, err := FromEnvironment()
	if err != nil {
		t.Fatalf("FromEnvironment() error = %v", err)
	}
	if want := []string{"a.log", "logs/"}; !reflect.DeepEqual(cfg.Inputs, want) {
		t.Errorf("Inputs = %v, want %v", cfg.Inputs, want)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown encoding", func(c *Config) { c.Encoding = "klingon-8" }},
		{"bad decode policy", func(c *Config) { c.OnDecodeError = "ignore" }},
		{"bad file policy", func(c *Config) { c.OnFileError = "retry" }},
		{"bad match mode", func(c *Config) { c.MatchMode = "regex" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"bad format", func(c *Config) { c.Output.Formats = []string{"pdf"} }},
		{"bad console", func(c *Config) { c.Output.Console = "html" }},
		{"negative cap", func(c *Config) { c.Output.MaxDetailedEntries = -5 }},
		{"bad fail_on", func(c *Config) { c.FailOn = "info" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.OnDecodeError != DefaultDecodePolicy || cfg.OnFileError != DefaultFilePolicy {
		t.Errorf("policies = %q/%q", cfg.OnDecodeError, cfg.OnFileError)
	}
	if cfg.MatchMode != MatchSubstring {
		t.Errorf("MatchMode = %q", cfg.MatchMode)
	}
	if cfg.Output.Console != DefaultConsole {
		t.Errorf("Console = %q", cfg.Output.Console)
	}
	if cfg.Output.MaxDetailedEntries != 100 {
		t.Errorf("MaxDetailedEntries = %d, want 100", cfg.Output.MaxDetailedEntries)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", cfg.Encoding)
	}
	if cfg.Output.Directory != "reports" {
		t.Errorf("Directory = %q, want reports", cfg.Output.Directory)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() does not validate: %v", err)
	}
}

func TestFailOn_Level(t *testing.T) {
	tests := []struct {
		in     FailOn
		want   parser.Level
		wantOK bool
	}{
		{FailOnNone, 0, false},
		{FailOnWarning, parser.LevelWarning, true},
		{FailOnError, parser.LevelError, true},
		{FailOnCritical, parser.LevelCritical, true},
	}

	for _, tt := range tests {
		got, ok := tt.in.Level()
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("%q.Level() = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValidate_Webhook_Valid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Webhooks = []WebhookConfig{{
		Name:    "test-webhook",
		URL:     "https://example.com/webhook",
		Trigger: WebhookTriggerOnIssues,
		Timeout: 10 * time.Second,
	}}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_Webhook_ValidHTTP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Webhooks = []WebhookConfig{{URL: "http://localhost:8080/webhook"}}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_Webhook_Invalid(t *testing.T) {
	tests := []struct {
		name string
		wh   WebhookConfig
	}{
		{"missing url", WebhookConfig{Name: "no-url", Trigger: WebhookTriggerOnIssues}},
		{"bad scheme", WebhookConfig{URL: "ftp://example.com/webhook"}},
		{"no host", WebhookConfig{URL: "https:///path"}},
		{"bad trigger", WebhookConfig{URL: "https://example.com", Trigger: "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Webhooks = []WebhookConfig{tt.wh}
			if err := Validate(cfg); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestValidate_Webhook_AllTriggers(t *testing.T) {
	for _, trigger := range []WebhookTrigger{WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever} {
		t.Run(string(trigger), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Webhooks = []WebhookConfig{{URL: "https://example.com/webhook", Trigger: trigger}}
			if err := Validate(cfg); err != nil {
				t.Errorf("Validate() error = %v for trigger %q", err, trigger)
			}
		})
	}
}

func TestValidate_Webhook_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Webhooks = []WebhookConfig{{URL: "https://example.com/webhook"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Webhooks[0].Trigger != WebhookTriggerOnIssues {
		t.Errorf("Trigger = %q, want on_issues", cfg.Webhooks[0].Trigger)
	}
	if cfg.Webhooks[0].Timeout != DefaultWebhookTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Webhooks[0].Timeout, DefaultWebhookTimeout)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_TOKEN", "secret-value")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_WEBHOOK_TOKEN}", "secret-value"},
		{"$TEST_WEBHOOK_TOKEN", "secret-value"},
		{"plain-value", "plain-value"},
		{"", ""},
		{"${NONEXISTENT_VAR}", ""},
	}

	for _, tt := range tests {
		got := expandEnvVar(tt.input)
		if got != tt.want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoad_WithWebhooks(t *testing.T) {
	t.Setenv("CONVLOG_TEST_TOKEN", "abc123")

	content := `
inputs:
  - /var/log/*.log
webhooks:
  - name: test-webhook
    url: "https://example.com/webhook"
    token: "${CONVLOG_TEST_TOKEN}"
    trigger: on_issues
    timeout: 30s
  - url: "https://backup.example.com/webhook"
    trigger: always
`
	path := writeTempFile(t, "config-with-webhooks.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Webhooks) != 2 {
		t.Fatalf("Webhooks = %d, want 2", len(cfg.Webhooks))
	}
	if cfg.Webhooks[0].Token != "abc123" {
		t.Errorf("Webhook[0].Token = %q, want expanded value", cfg.Webhooks[0].Token)
	}
	if cfg.Webhooks[0].Timeout != 30*time.Second {
		t.Errorf("Webhook[0].Timeout = %v, want 30s", cfg.Webhooks[0].Timeout)
	}
	if cfg.Webhooks[1].Trigger != WebhookTriggerAlways {
		t.Errorf("Webhook[1].Trigger = %v, want %v", cfg.Webhooks[1].Trigger, WebhookTriggerAlways)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}
