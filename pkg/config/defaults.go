package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/convlog/pkg/output"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// Default values for configuration.
const (
	DefaultOutputDir      = "reports"
	DefaultConsole        = "text"
	DefaultDecodePolicy   = "replace"
	DefaultFilePolicy     = "skip"
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvInputs    = "CONVLOG_INPUTS"
	EnvEncoding  = "CONVLOG_ENCODING"
	EnvOutputDir = "CONVLOG_OUTPUT_DIR"
	EnvWorkers   = "CONVLOG_WORKERS"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Inputs:        []string{},
		Extensions:    append([]string(nil), parser.DefaultExtensions...),
		Encoding:      parser.DefaultEncoding,
		OnDecodeError: DefaultDecodePolicy,
		OnFileError:   DefaultFilePolicy,
		MatchMode:     MatchSubstring,
		Workers:       1,
		Output: OutputConfig{
			Directory:          DefaultOutputDir,
			Formats:            []string{output.FormatCSV},
			MaxDetailedEntries: output.DefaultMaxEntriesPerLevel,
			Console:            DefaultConsole,
		},
		FailOn: FailOnNone,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() error {
	if inputs := os.Getenv(EnvInputs); inputs != "" && len(c.Inputs) == 0 {
		for _, in := range strings.Split(inputs, ",") {
			if in = strings.TrimSpace(in); in != "" {
				c.Inputs = append(c.Inputs, in)
			}
		}
	}

	if enc := os.Getenv(EnvEncoding); enc != "" {
		c.Encoding = enc
	}

	if dir := os.Getenv(EnvOutputDir); dir != "" {
		c.Output.Directory = dir
	}

	if workers := os.Getenv(EnvWorkers); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}

	return nil
}
