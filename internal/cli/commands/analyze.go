package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lixenwraith/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ccollicutt/convlog/pkg/analyzer"
	"github.com/ccollicutt/convlog/pkg/config"
	"github.com/ccollicutt/convlog/pkg/output"
	"github.com/ccollicutt/convlog/pkg/parser"
	"github.com/ccollicutt/convlog/pkg/webhook"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitThreshold   = 1
	ExitError       = 2
	ExitInterrupted = 130
)

// ExitCode is set by commands to indicate the result
var ExitCode = ExitOK

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	ConfigPath    string
	Inputs        []string
	OutputDir     string
	Format        string
	Detailed      bool
	MaxDetailed   int
	Encoding      string
	OnDecodeError string
	OnFileError   string
	Match         string
	Workers       int
	Recursive     bool
	Console       string
	FailOn        string
	Verbose       bool
	Quiet         bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [inputs...]",
		Short: "Count CRITICAL, ERROR and WARNING lines in log files",
		Long: `Analyze log files and report how many CRITICAL, ERROR and WARNING
lines they contain, broken down by [STEP:name] tags.

Inputs may be files, directories (*.log and *.txt files) or glob patterns,
given as arguments, with -i, or in the config file.

Reports are written to the output directory as timestamped files:
  summary_YYYYMMDD_HHMMSS.csv / .md
  detailed_YYYYMMDD_HHMMSS.csv / .md  (with --detailed)
  report_YYYYMMDD_HHMMSS.json          (with -f json or -f all)

Example:
  convlog analyze logs/
  convlog analyze -i app.log -i db.log -o reports -f both --detailed
  convlog analyze --config convlog.yaml --fail-on error

Exit codes:
  0   - Analysis complete
  1   - Entries at or above the --fail-on level were found
  2   - Configuration or runtime error
  130 - Interrupted (partial reports are still written)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file")
	f.StringArrayVarP(&opts.Inputs, "input", "i", nil, "Log file, directory or glob (can be repeated)")
	f.StringVarP(&opts.OutputDir, "output", "o", config.DefaultOutputDir, "Directory for report files")
	f.StringVarP(&opts.Format, "format", "f", output.FormatCSV, "Report format (csv|markdown|json|both|all)")
	f.BoolVar(&opts.Detailed, "detailed", false, "Also write per-entry reports")
	f.IntVar(&opts.MaxDetailed, "max-detailed-entries", output.DefaultMaxEntriesPerLevel, "Entries listed per level in detailed Markdown reports")
	f.StringVar(&opts.Encoding, "encoding", parser.DefaultEncoding, "Text encoding of the log files")
	f.StringVar(&opts.OnDecodeError, "on-decode-error", config.DefaultDecodePolicy, "Undecodable lines (replace|skip_line|skip_file|abort)")
	f.StringVar(&opts.OnFileError, "on-file-error", config.DefaultFilePolicy, "Unreadable files (skip|abort)")
	f.StringVar(&opts.Match, "match", string(config.MatchSubstring), "Keyword matching (substring|word)")
	f.IntVarP(&opts.Workers, "workers", "w", 1, "Files analyzed concurrently")
	f.BoolVarP(&opts.Recursive, "recursive", "r", false, "Descend into subdirectories")
	f.StringVar(&opts.Console, "console", config.DefaultConsole, "Summary printed to stdout (text|json|none)")
	f.StringVar(&opts.FailOn, "fail-on", string(config.FailOnNone), "Exit 1 when entries at or above this level exist (none|warning|error|critical)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Show run details and debug logging")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "One line summary, no logging")

	// Webhook flags
	f.StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	f.StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	f.StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnIssues), "When to fire webhook (on_issues|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ExitCode = ExitOK

	logger, err := newLogger(opts.Verbose, opts.Quiet)
	if err != nil {
		return err
	}
	defer closeLogger(logger)

	cfg, err := resolveConfig(ctx, cmd, opts)
	if err != nil {
		return err
	}

	inputs := append(append([]string{}, args...), opts.Inputs...)
	if len(inputs) == 0 {
		inputs = cfg.Inputs
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs given: pass files or directories, use -i, or set inputs in the config file")
	}

	files, err := parser.DiscoverFiles(inputs, parser.DiscoverOptions{
		Extensions: cfg.Extensions,
		Recursive:  cfg.Recursive,
	})
	if err != nil {
		return fmt.Errorf("finding log files: %w", err)
	}
	logger.Debug("msg", "Discovered log files", "count", len(files))

	a, err := analyzer.New(analyzerOptions(cfg, logger, progressFunc(opts))...)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	result, runErr := a.Analyze(ctx, files)
	clearProgress(opts)
	if runErr != nil && !result.Metadata.Interrupted {
		return fmt.Errorf("analysis failed: %w", runErr)
	}

	report := output.NewReport(result, "")
	formatOpts := output.FormatOptions{
		Verbose:            opts.Verbose,
		Quiet:              opts.Quiet,
		MaxEntriesPerLevel: cfg.Output.MaxDetailedEntries,
	}

	out := cmd.OutOrStdout()
	if formatter := createFormatter(cfg.Output.Console, formatOpts); formatter != nil {
		if err := formatter.Format(ctx, report, out); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}
	}

	// Reports are written even when interrupted, so use a fresh context.
	paths, err := output.WriteReports(context.WithoutCancel(ctx), cfg.Output.Directory,
		cfg.Output.Formats, cfg.Output.Detailed, report, formatOpts)
	if err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}
	printCreated(reportWriter(cmd, cfg), paths, opts.Quiet)

	if result.Metadata.Interrupted {
		logger.Warn("msg", "Analysis interrupted, reports contain partial counts")
		ExitCode = ExitInterrupted
		return nil
	}

	sendWebhooks(ctx, cmd.ErrOrStderr(), cfg, opts, report, logger)

	if level, ok := cfg.FailOn.Level(); ok && report.HasLevelAtLeast(level) {
		ExitCode = ExitThreshold
	}

	return nil
}

// resolveConfig loads the config file, or the environment defaults, and
// applies explicitly set flags on top.
func resolveConfig(ctx context.Context, cmd *cobra.Command, opts *AnalyzeOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(ctx, opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg, err = config.FromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Directory = opts.OutputDir
	}
	if flags.Changed("format") {
		cfg.Output.Formats = strings.Split(opts.Format, ",")
	}
	if flags.Changed("detailed") {
		cfg.Output.Detailed = opts.Detailed
	}
	if flags.Changed("max-detailed-entries") {
		cfg.Output.MaxDetailedEntries = opts.MaxDetailed
	}
	if flags.Changed("console") {
		cfg.Output.Console = opts.Console
	}
	if flags.Changed("encoding") {
		cfg.Encoding = opts.Encoding
	}
	if flags.Changed("on-decode-error") {
		cfg.OnDecodeError = opts.OnDecodeError
	}
	if flags.Changed("on-file-error") {
		cfg.OnFileError = opts.OnFileError
	}
	if flags.Changed("match") {
		cfg.MatchMode = config.MatchMode(opts.Match)
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("recursive") {
		cfg.Recursive = opts.Recursive
	}
	if flags.Changed("fail-on") {
		cfg.FailOn = config.FailOn(opts.FailOn)
	}
	if opts.WebhookURL != "" {
		cfg.Webhooks = append(cfg.Webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		})
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

func analyzerOptions(cfg *config.Config, logger *log.Logger, progress analyzer.ProgressFunc) []analyzer.Option {
	opts := []analyzer.Option{
		analyzer.WithDetailed(cfg.Output.Detailed),
		analyzer.WithEncoding(cfg.Encoding),
		analyzer.WithDecodePolicy(analyzer.DecodePolicy(cfg.OnDecodeError)),
		analyzer.WithFilePolicy(analyzer.FilePolicy(cfg.OnFileError)),
		analyzer.WithWorkers(cfg.Workers),
		analyzer.WithLogger(logger),
		analyzer.WithProgress(progress),
	}
	if cfg.MatchMode == config.MatchWord {
		opts = append(opts, analyzer.WithClassifier(parser.NewWordClassifier()))
	}
	return opts
}

// progressFunc returns a callback that redraws a progress line on stderr, or
// nil when stderr is not a terminal.
func progressFunc(opts *AnalyzeOptions) analyzer.ProgressFunc {
	if opts.Quiet || !stderrIsTerminal() {
		return nil
	}
	return func(path string, index, total int) {
		fmt.Fprintf(os.Stderr, "\r\033[K[%d/%d] %s", index+1, total, filepath.Base(path))
	}
}

func clearProgress(opts *AnalyzeOptions) {
	if !opts.Quiet && stderrIsTerminal() {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}

func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// createFormatter returns the console formatter, or nil for "none".
func createFormatter(console string, formatOpts output.FormatOptions) output.Formatter {
	switch console {
	case "json":
		return output.NewJSONFormatter(formatOpts)
	case "none":
		return nil
	default:
		return output.NewTextFormatter(formatOpts)
	}
}

// reportWriter keeps stdout clean JSON when the console format is json.
func reportWriter(cmd *cobra.Command, cfg *config.Config) io.Writer {
	if cfg.Output.Console == "json" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func printCreated(w io.Writer, paths []string, quiet bool) {
	if quiet || len(paths) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reports:")
	for _, p := range paths {
		fmt.Fprintf(w, "  Created: %s\n", p)
	}
}

// sendWebhooks sends the report to all configured webhooks.
// Errors are reported but don't fail the analysis.
func sendWebhooks(ctx context.Context, w io.Writer, cfg *config.Config, opts *AnalyzeOptions, report *output.Report, logger *log.Logger) {
	targets := collectWebhooks(cfg)
	if len(targets) == 0 {
		return
	}

	client := webhook.NewClient(logger)
	for _, d := range client.Notify(ctx, report, targets) {
		if opts.Quiet {
			continue
		}
		if d.Response.Success() {
			fmt.Fprintf(w, "Webhook %s: sent (%d, %s)\n", d.Target.DisplayName(), d.Response.StatusCode, d.Response.Duration)
		} else {
			fmt.Fprintf(w, "Webhook %s: failed (%v)\n", d.Target.DisplayName(), d.Response.Error)
		}
	}
}

// collectWebhooks converts configured webhooks into delivery targets.
func collectWebhooks(cfg *config.Config) []webhook.Target {
	targets := make([]webhook.Target, 0, len(cfg.Webhooks))
	for _, wh := range cfg.Webhooks {
		targets = append(targets, webhook.Target{
			Name:    wh.Name,
			URL:     wh.URL,
			Token:   wh.Token,
			Trigger: string(wh.Trigger),
			Timeout: wh.Timeout,
		})
	}
	return targets
}
