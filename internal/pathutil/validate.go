// Package pathutil guards every filesystem access against path escape.
// All lookups under the configured input root go through ValidateSubfolder
// or ValidateFile before any directory or file is read.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath indicates a candidate path that is absolute, malformed, or
// escapes the configured root. Callers must not echo the offending value into
// logs or responses; report a generic "invalid subfolder" instead.
var ErrInvalidPath = errors.New("invalid path")

// ResolveRoot normalizes the configured input directory: expands a relative
// path, resolves symlinks, and verifies it is an existing directory. The
// returned path is the security boundary for all later validation.
func ResolveRoot(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("input directory not set")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid input directory: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("input directory does not exist: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot access input directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("input directory is not a directory: %s", resolved)
	}

	return resolved, nil
}

// ValidateSubfolder checks that name is a plausible single-level subfolder
// name ("" denotes the root itself) and returns the absolute directory path
// under root. It rejects separators, traversal tokens, null bytes, absolute
// paths, and drive-letter/UNC forms without touching the filesystem.
func ValidateSubfolder(root, name string) (string, error) {
	if name == "" {
		return root, nil
	}
	if !plausibleName(name) {
		return "", ErrInvalidPath
	}
	return joinUnderRoot(root, name)
}

// ValidateFile resolves root/subfolder/filename after validating each
// component. filename must be a bare name with no separators.
func ValidateFile(root, subfolder, filename string) (string, error) {
	if filename == "" || !plausibleName(filename) {
		return "", ErrInvalidPath
	}
	dir, err := ValidateSubfolder(root, subfolder)
	if err != nil {
		return "", err
	}
	return joinUnderRoot(dir, filename)
}

// plausibleName reports whether s can be a direct child entry name: no path
// separators in either convention, no traversal tokens, no null bytes, and no
// drive-letter or UNC prefixes.
func plausibleName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsRune(s, 0) {
		return false
	}
	if strings.ContainsAny(s, `/\`) {
		return false
	}
	if isWindowsAbs(s) {
		return false
	}
	return true
}

// isWindowsAbs catches drive-letter (C:...) and UNC (\\host\share) forms that
// filepath.IsAbs misses on non-Windows hosts.
func isWindowsAbs(s string) bool {
	if len(s) >= 2 && s[1] == ':' {
		c := s[0]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return strings.HasPrefix(s, `\\`) || strings.HasPrefix(s, "//")
}

func joinUnderRoot(root, name string) (string, error) {
	resolved := filepath.Join(root, name)
	if !within(root, resolved) {
		return "", ErrInvalidPath
	}
	return resolved, nil
}

// within reports whether path is root itself or strictly below it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
