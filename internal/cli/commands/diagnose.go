package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/ccollicutt/convlog/pkg/config"
	"github.com/ccollicutt/convlog/pkg/detector"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// maxSampledFiles bounds how many discovered files the encoding check reads.
const maxSampledFiles = 5

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Input existence and file discovery
- Encoding of the discovered log files
- Report directory permissions
- Webhook settings

Example:
  convlog diagnose config.yaml
  convlog diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check inputs
	inputResults, files := checkInputs(cfg)
	results = append(results, inputResults...)

	// 4. Check the encoding against actual logs
	results = append(results, checkEncoding(ctx, cfg, files, opts)...)

	// 5. Check the report directory
	results = append(results, checkOutputDir(cfg))

	// 6. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'convlog detect <log-file> --write-config config.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'convlog detect <log-file> --write-config config.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Inputs: %d", len(cfg.Inputs)),
		fmt.Sprintf("Encoding: %s", cfg.Encoding),
		fmt.Sprintf("Formats: %s", strings.Join(cfg.Output.Formats, ", ")),
	}
	return cfg, result
}

// checkInputs reports on each configured input and returns every file the
// inputs resolve to.
func checkInputs(cfg *config.Config) ([]DiagnosticResult, []string) {
	results := []DiagnosticResult{}

	if len(cfg.Inputs) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Inputs",
			Status:  "warning",
			Message: "No inputs configured",
			Suggests: []string{
				"Add an inputs list to the config, or pass files on the command line",
			},
		})
		return results, nil
	}

	discover := parser.DiscoverOptions{Extensions: cfg.Extensions, Recursive: cfg.Recursive}
	var all []string
	seen := make(map[string]bool)

	for _, input := range cfg.Inputs {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Input: %s", input),
		}

		files, err := parser.DiscoverFiles([]string{input}, discover)
		switch {
		case errors.Is(err, parser.ErrNoInputs):
			result.Status = "error"
			result.Message = "Directory contains no log files"
			result.Suggests = []string{
				fmt.Sprintf("Only files ending in %s are picked up", strings.Join(cfg.Extensions, ", ")),
				"Set recursive: true to include subdirectories",
			}
		case errors.Is(err, os.ErrNotExist) && isGlob(input):
			result.Status = "error"
			result.Message = "Glob pattern matches no files"
			result.Suggests = []string{
				"Check if the log files exist at this path",
				"Verify the glob pattern syntax",
			}
		case errors.Is(err, os.ErrNotExist):
			result.Status = "error"
			result.Message = "Path does not exist"
			result.Suggests = []string{
				"Check if the log file path is correct",
			}
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access input: %v", err)
			result.Suggests = []string{"Check file permissions"}
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Resolves to %d file(s)", len(files))
			result.Details = append(result.Details, files...)
			for _, f := range files {
				if !seen[f] {
					seen[f] = true
					all = append(all, f)
				}
			}
		}
		results = append(results, result)
	}

	if len(all) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No accessible log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}

	return results, all
}

// checkEncoding samples the first few discovered files and compares what
// they look like against the configured encoding.
func checkEncoding(ctx context.Context, cfg *config.Config, files []string, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}
	det := detector.New()

	if len(files) > maxSampledFiles {
		files = files[:maxSampledFiles]
	}

	for _, path := range files {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Encoding: %s", filepath.Base(path)),
		}

		res, err := det.DetectFromFile(ctx, path)
		if err != nil {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Cannot read file: %v", err)
			results = append(results, result)
			continue
		}

		switch {
		case !sameEncoding(res.Encoding, cfg.Encoding):
			result.Status = "warning"
			result.Message = fmt.Sprintf("File looks like %s (%s), config says %s", res.Encoding, res.Reason, cfg.Encoding)
			result.Suggests = []string{
				fmt.Sprintf("Set encoding: %s if every input uses it", res.Encoding),
			}
		case res.InvalidLines > 0:
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d of %d sampled lines are not valid %s", res.InvalidLines, res.SampledLines, cfg.Encoding)
			result.Suggests = []string{
				"Invalid bytes are handled by on_decode_error (currently " + cfg.OnDecodeError + ")",
			}
		case !res.HasEntries():
			result.Status = "warning"
			result.Message = fmt.Sprintf("No CRITICAL, ERROR or WARNING lines in the first %d lines", res.SampledLines)
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("%s, %d of %d sampled lines classified", res.Encoding, res.Classified(), res.SampledLines)
		}

		if opts.Verbose {
			for _, entry := range res.Samples {
				result.Details = append(result.Details, fmt.Sprintf("%s: %s", entry.Level, truncate(entry.Message, 80)))
			}
		}
		if cfg.MatchMode == config.MatchSubstring && res.SuggestWordMatch() {
			result.Suggests = append(result.Suggests,
				fmt.Sprintf("Only %d of %d matches are whole words; consider match_mode: word", res.WordHits, res.Classified()))
		}

		results = append(results, result)
	}

	return results
}

// checkOutputDir verifies that reports can be written.
func checkOutputDir(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Report Directory",
	}
	dir := cfg.Output.Directory

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		result.Status = "ok"
		result.Message = fmt.Sprintf("%s will be created on first run", dir)
		return result
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access %s: %v", dir, err)
		return result
	case !info.IsDir():
		result.Status = "error"
		result.Message = fmt.Sprintf("%s exists and is not a directory", dir)
		return result
	}

	scratch, err := os.CreateTemp(dir, ".convlog-write-check-*")
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("%s is not writable: %v", dir, err)
		result.Suggests = []string{"Check directory permissions or set output.directory"}
		return result
	}
	name := scratch.Name()
	_ = scratch.Close()
	_ = os.Remove(name)

	result.Status = "ok"
	result.Message = fmt.Sprintf("%s is writable", dir)
	return result
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		if strings.HasPrefix(wh.Token, "$") {
			warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== convlog Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

// sameEncoding reports whether two encoding names resolve to the same
// IANA encoding.
func sameEncoding(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	ea, errA := parser.LookupEncoding(a)
	eb, errB := parser.LookupEncoding(b)
	if errA != nil || errB != nil {
		return false
	}
	na, errA := ianaindex.IANA.Name(ea)
	nb, errB := ianaindex.IANA.Name(eb)
	return errA == nil && errB == nil && na == nb
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
