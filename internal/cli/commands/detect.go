package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/convlog/pkg/config"
	"github.com/ccollicutt/convlog/pkg/detector"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Detect the encoding and severity markers of a log file",
		Long: `Sample a log file to work out how convlog should read it.

Reads the head of the file, guesses its text encoding from byte order marks,
NUL byte patterns and UTF-8 validity, then classifies the sampled lines the
same way analyze does. Reports level counts, [STEP: ...] tags, and whether
whole-word matching would be safer, with a ready-to-use YAML snippet.

Optionally generates a starter config file with --write-config.

Example:
  convlog detect /var/log/convert.log
  convlog detect --sample 500 /var/log/large.log
  convlog detect --write-config convlog.yaml /var/log/convert.log
  convlog detect -o json /var/log/convert.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("invalid output format %q (must be text or json)", opts.Output)
	}

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(result, logFile, opts.WriteConfig); err != nil {
			return err
		}
		// Keep stdout parseable in json mode.
		if opts.Output == "json" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote starter config to: %s\n", opts.WriteConfig)
		} else {
			fmt.Fprintf(out, "Wrote starter config to: %s\n\n", opts.WriteConfig)
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(out, result, logFile)
	default:
		return outputDetectText(out, result, logFile)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string) error {
	fmt.Fprintln(w, "=== Log Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)

	bom := ""
	if result.BOM {
		bom = ", BOM present"
	}
	fmt.Fprintf(w, "Encoding: %s (%s%s)\n", result.Encoding, result.Reason, bom)
	if result.InvalidLines > 0 {
		fmt.Fprintf(w, "Undecodable lines: %d\n", result.InvalidLines)
	}
	fmt.Fprintln(w)

	if !result.HasEntries() {
		fmt.Fprintln(w, "No CRITICAL, ERROR or WARNING lines in the sample.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: try a larger --sample, the file may only log problems later on.")
	} else {
		fmt.Fprintf(w, "Classified lines: %d\n", result.Classified())
		for _, level := range parser.Levels() {
			fmt.Fprintf(w, "  %s: %d\n", level, result.LevelHits.Get(level))
		}
		fmt.Fprintln(w)

		if result.TaggedLines > 0 {
			fmt.Fprintf(w, "Step tags: %d line(s) across %d step(s)\n", result.TaggedLines, len(result.Steps))
			for _, step := range result.Steps {
				fmt.Fprintf(w, "  - %s\n", step)
			}
			fmt.Fprintln(w)
		}

		fmt.Fprintln(w, "Sample matches:")
		for _, entry := range result.Samples {
			fmt.Fprintf(w, "  [%s] line %d: %s\n", entry.Level, entry.LineNum, truncate(entry.Message, 100))
		}
		fmt.Fprintln(w)

		if result.SuggestWordMatch() {
			fmt.Fprintf(w, "Note: only %d of %d matches are whole words. Words such as\n", result.WordHits, result.Classified())
			fmt.Fprintln(w, "\"ERRORS\" or \"warning_count\" are being counted; consider match_mode: word.")
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "encoding: %s\n", result.Encoding)
	if result.SuggestWordMatch() {
		fmt.Fprintf(w, "match_mode: %s\n", config.MatchWord)
	}
	if result.InvalidLines > 0 {
		fmt.Fprintln(w, "on_decode_error: replace")
	}
	fmt.Fprintln(w)

	return nil
}

// DetectJSONOutput is the JSON form of a detection result.
type DetectJSONOutput struct {
	File             string         `json:"file"`
	Encoding         string         `json:"encoding"`
	Reason           string         `json:"reason"`
	BOM              bool           `json:"bom"`
	SampledLines     int            `json:"sampled_lines"`
	InvalidLines     int            `json:"invalid_lines"`
	Levels           map[string]int `json:"levels"`
	WordMatches      int            `json:"word_matches"`
	SuggestWordMatch bool           `json:"suggest_word_match"`
	TaggedLines      int            `json:"tagged_lines"`
	Steps            []string       `json:"steps"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string) error {
	output := DetectJSONOutput{
		File:             logFile,
		Encoding:         result.Encoding,
		Reason:           result.Reason,
		BOM:              result.BOM,
		SampledLines:     result.SampledLines,
		InvalidLines:     result.InvalidLines,
		Levels:           make(map[string]int, parser.NumLevels),
		WordMatches:      result.WordHits,
		SuggestWordMatch: result.SuggestWordMatch(),
		TaggedLines:      result.TaggedLines,
		Steps:            make([]string, 0, len(result.Steps)),
	}
	for _, level := range parser.Levels() {
		output.Levels[level.String()] = result.LevelHits.Get(level)
	}
	output.Steps = append(output.Steps, result.Steps...)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// writeStarterConfig generates a starter config file from the detection
// result. An existing file is never overwritten.
func writeStarterConfig(result *detector.DetectionResult, logFile, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	content, err := generateStarterConfig(result, logFile)
	if err != nil {
		return err
	}

	// #nosec G302 G304 - config file doesn't need restrictive permissions
	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}

// starterConfig builds a configuration that reads logFile the way the
// detection result suggests.
func starterConfig(result *detector.DetectionResult, logFile string) *config.Config {
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	cfg := config.DefaultConfig()
	cfg.Inputs = []string{absLogFile}
	cfg.Encoding = result.Encoding
	if result.SuggestWordMatch() {
		cfg.MatchMode = config.MatchWord
	}
	cfg.Output.Formats = []string{"csv", "markdown"}
	cfg.Output.Detailed = true
	return cfg
}

// generateStarterConfig renders the starter config as commented YAML.
func generateStarterConfig(result *detector.DetectionResult, logFile string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# convlog configuration")
	fmt.Fprintln(&buf, "# Generated by: convlog detect")
	fmt.Fprintf(&buf, "# Detected encoding: %s (%s)\n", result.Encoding, result.Reason)
	fmt.Fprintf(&buf, "# Sampled %d line(s), %d classified\n", result.SampledLines, result.Classified())
	fmt.Fprintln(&buf, "#")
	fmt.Fprintln(&buf, "# Add more inputs as files, directories or globs, e.g. /var/log/convert/*.log")
	fmt.Fprintln(&buf, "# Set fail_on: error to make CI fail when errors are found.")
	fmt.Fprintln(&buf)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(starterConfig(result, logFile)); err != nil {
		return nil, fmt.Errorf("encoding starter config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding starter config: %w", err)
	}
	return buf.Bytes(), nil
}
