// Package plugins provides exec-based plugin support for convlog.
// Plugins are separate binaries named convlog-<command> that are discovered
// and executed when an unknown command is invoked. The graphical front end
// ships this way as convlog-gui.
package plugins

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "convlog-"

// EnvPluginPath lists extra plugin directories, separated like PATH.
const EnvPluginPath = "CONVLOG_PLUGIN_PATH"

// KnownPlugins lists plugins that have official implementations available.
// These get special error messages directing users where to obtain them.
var KnownPlugins = map[string]string{
	"gui": "Desktop front end for picking log folders and report formats. Build it from the convlog-gui repository.",
}

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// SearchDirs returns the directories searched for plugins, in order:
//  1. Directories in $CONVLOG_PLUGIN_PATH
//  2. Same directory as the convlog binary
//  3. ~/.convlog/plugins/
//
// PATH is searched after these.
func SearchDirs() []string {
	var dirs []string

	for _, dir := range filepath.SplitList(os.Getenv(EnvPluginPath)) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}

	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".convlog", "plugins"))
	}

	return dirs
}

// FindPlugin searches for a plugin binary named convlog-<command> in
// SearchDirs and then PATH. Returns the full path to the plugin binary.
func FindPlugin(command string) (string, error) {
	pluginName := Prefix + command

	for _, dir := range SearchDirs() {
		candidate := filepath.Join(dir, pluginName)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(pluginName); err == nil {
		return path, nil
	}

	return "", ErrPluginNotFound
}

// List returns the command names of the plugins installed in SearchDirs,
// sorted and without duplicates.
func List() []string {
	seen := make(map[string]bool)
	for _, dir := range SearchDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, Prefix) || len(name) == len(Prefix) {
				continue
			}
			if isExecutable(filepath.Join(dir, name)) {
				seen[strings.TrimPrefix(name, Prefix)] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs a plugin with the given arguments.
// It connects stdin, stdout, and stderr to the plugin process
// and returns the plugin's exit code.
func Execute(pluginPath string, args []string) int {
	cmd := exec.Command(pluginPath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing plugin: %v\n", err)
		return 1
	}

	return 0
}

// FormatNotFoundError returns a helpful error message when a plugin is not found.
// If the command is a known plugin, includes information about where to get it.
func FormatNotFoundError(command string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("unknown command %q for \"convlog\"\n", command))

	if info, ok := KnownPlugins[command]; ok {
		sb.WriteString(fmt.Sprintf("\n%q is available as a plugin.\n", command))
		sb.WriteString(info)
		sb.WriteString("\n\nInstall the plugin binary as one of:\n")
	} else {
		sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	}

	sb.WriteString(fmt.Sprintf("  - %s%s in a directory listed in $%s\n", Prefix, command, EnvPluginPath))
	sb.WriteString(fmt.Sprintf("  - %s%s in the same directory as convlog\n", Prefix, command))
	sb.WriteString(fmt.Sprintf("  - ~/.convlog/plugins/%s%s\n", Prefix, command))
	sb.WriteString(fmt.Sprintf("  - %s%s anywhere in your PATH\n", Prefix, command))

	sb.WriteString("\nRun 'convlog --help' for usage.")

	return sb.String()
}

// isExecutable checks if a file exists and is executable.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if info.Mode().IsRegular() {
		return info.Mode()&0111 != 0
	}

	return false
}
