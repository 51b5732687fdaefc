package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoInputs is returned when discovery finds no files to analyze.
var ErrNoInputs = errors.New("no log files found")

// DefaultExtensions are the file extensions picked up from directories.
var DefaultExtensions = []string{".log", ".txt"}

// ExpandGlobs expands a list of file paths and glob patterns into a deduplicated
// list of matching file paths. Patterns that don't match any files are returned as-is
// (the caller should handle file-not-found errors).
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			// Keep unmatched patterns so the caller can report them by name
			if !seen[pattern] {
				seen[pattern] = true
				result = append(result, pattern)
			}
			continue
		}

		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				result = append(result, match)
			}
		}
	}

	sort.Strings(result)

	return result, nil
}

// DiscoverOptions controls how directories are searched.
type DiscoverOptions struct {
	// Extensions lists the file extensions taken from directories
	// (case-insensitive). Empty means DefaultExtensions.
	Extensions []string

	// Recursive descends into subdirectories.
	Recursive bool
}

// DiscoverFiles resolves inputs into the ordered list of files to analyze.
//
// A file is taken as is, a directory contributes its files with a matching
// extension, and glob patterns are expanded. Results keep input order, are
// sorted within each input and contain no duplicates. An input that does not
// exist is an error.
func DiscoverFiles(inputs []string, opts DiscoverOptions) ([]string, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	seen := make(map[string]bool)
	var result []string
	add := func(paths []string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}

	for _, input := range inputs {
		paths, err := ExpandGlobs([]string{input})
		if err != nil {
			return nil, err
		}

		for _, path := range paths {
			info, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("input %s: %w", path, err)
			}

			if !info.IsDir() {
				add([]string{path})
				continue
			}

			files, err := scanDir(path, exts, opts.Recursive)
			if err != nil {
				return nil, fmt.Errorf("scanning directory %s: %w", path, err)
			}
			add(files)
		}
	}

	if len(result) == 0 {
		return nil, ErrNoInputs
	}
	return result, nil
}

func scanDir(dir string, exts []string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if hasExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func hasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
