package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxPathLen bounds user-supplied relative paths.
const maxPathLen = 1024

// PathError represents a path validation failure.
type PathError struct {
	UserPath     string // Original user input that was rejected
	Reason       string // Human-readable reason for rejection
	ResolvedPath string // Resolved path if resolution succeeded (may be empty)
}

// Error implements the error interface.
func (e *PathError) Error() string {
	if e.ResolvedPath != "" {
		return fmt.Sprintf("path validation failed: %s (input: %s, resolved: %s)",
			e.Reason, e.UserPath, e.ResolvedPath)
	}
	return fmt.Sprintf("path validation failed: %s (input: %s)", e.Reason, e.UserPath)
}

// ResolveWithin resolves userPath relative to baseDir and guarantees the
// result stays inside baseDir after symbolic links are followed.
//
// The file itself does not need to exist, but its parent directory must.
func ResolveWithin(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", &PathError{UserPath: userPath, Reason: "path cannot be empty"}
	}
	if len(userPath) > maxPathLen {
		return "", &PathError{UserPath: userPath, Reason: fmt.Sprintf("path length exceeds maximum of %d bytes", maxPathLen)}
	}
	if !filepath.IsLocal(userPath) {
		return "", &PathError{UserPath: userPath, Reason: "path escapes allowed directory"}
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve base directory: %w", err)
	}
	resolvedBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return "", fmt.Errorf("cannot resolve symbolic links in base directory: %w", err)
	}

	fullPath := filepath.Join(resolvedBase, filepath.Clean(userPath))
	resolved, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		// Allow paths that do not exist yet as long as the parent resolves.
		parent, parentErr := filepath.EvalSymlinks(filepath.Dir(fullPath))
		if parentErr != nil {
			return "", &PathError{UserPath: userPath, Reason: "cannot resolve path"}
		}
		resolved = filepath.Join(parent, filepath.Base(fullPath))
	}

	rel, err := filepath.Rel(resolvedBase, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{UserPath: userPath, Reason: "resolved path escapes base directory", ResolvedPath: resolved}
	}

	return resolved, nil
}
