// Package cli provides the command-line interface for convlog.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/convlog/internal/cli/commands"
	"github.com/ccollicutt/convlog/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	// Check if the first argument might be a plugin command
	if len(os.Args) > 1 {
		potentialCommand := os.Args[1]
		if len(potentialCommand) > 0 && potentialCommand[0] != '-' {
			if !isBuiltinCommand(rootCmd, potentialCommand) {
				if pluginPath, err := plugins.FindPlugin(potentialCommand); err == nil {
					return plugins.Execute(pluginPath, os.Args[2:])
				}
				// Plugin not found - will fall through to Cobra which will show error
			}
		}
	}

	if err := rootCmd.Execute(); err != nil {
		if len(os.Args) > 1 {
			potentialCommand := os.Args[1]
			if len(potentialCommand) > 0 && potentialCommand[0] != '-' {
				if !isBuiltinCommand(rootCmd, potentialCommand) {
					_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(potentialCommand))
					return commands.ExitError
				}
			}
		}
		// SilenceErrors prevents Cobra from printing this
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return commands.ExitError
	}
	return commands.ExitCode
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	return name == "help" || name == "completion"
}

const rootLong = `convlog scans data conversion logs and counts the lines marked CRITICAL,
ERROR or WARNING, grouped by [STEP:<name>] tags.

It reads files, directories and glob patterns in any text encoding, prints a
summary, and writes CSV, Markdown and JSON reports for review or CI gates.

PLUGINS:
  convlog supports plugins for extended functionality. Plugins are standalone
  binaries named convlog-<command> that are automatically discovered and invoked.

  Plugin locations (searched in order):
    1. Directories listed in $CONVLOG_PLUGIN_PATH
    2. Same directory as the convlog binary
    3. ~/.convlog/plugins/
    4. Anywhere in PATH`

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "convlog",
		Short:         "Count errors and warnings in conversion logs",
		Long:          rootLong + pluginHelp(plugins.KnownPlugins, plugins.List()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// pluginHelp lists known and installed plugins for the root help text.
func pluginHelp(known map[string]string, installed []string) string {
	var sb strings.Builder
	if len(known) > 0 {
		sb.WriteString("\n\n  Available plugins:\n")
		for _, name := range sortedKeys(known) {
			fmt.Fprintf(&sb, "    %-8s %s\n", name, known[name])
		}
	}
	if len(installed) > 0 {
		if len(known) == 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("\n  Installed plugins:\n")
		for _, name := range installed {
			fmt.Fprintf(&sb, "    %s\n", name)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
