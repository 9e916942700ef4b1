// Package pathutil validates caller-supplied path pieces before they touch
// the data folder.
//
// Journal types and ids arrive straight from HTTP bodies and become directory
// and file names, so every segment is checked on its own and the joined result
// is re-checked against the base directory after symlink resolution.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafeSegment is returned when a single path segment could escape or
// alias its parent directory.
var ErrUnsafeSegment = errors.New("unsafe path segment")

// MaxSegmentLen keeps segments under the common 255-byte filename limit once
// an extension is appended. Request validation enforces the same bound.
const MaxSegmentLen = 250

// ValidateSegment reports whether s is usable as exactly one path element.
//
// Rejected: empty or whitespace-padded values, "." and "..", anything holding
// a path separator (either slash style, regardless of platform), NUL bytes and
// other control characters, and values longer than MaxSegmentLen bytes.
func ValidateSegment(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrUnsafeSegment)
	case strings.TrimSpace(s) != s:
		return fmt.Errorf("%w: leading or trailing whitespace in %q", ErrUnsafeSegment, s)
	case s == "." || s == "..":
		return fmt.Errorf("%w: %q", ErrUnsafeSegment, s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%w: separator in %q", ErrUnsafeSegment, s)
	case len(s) > MaxSegmentLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrUnsafeSegment, MaxSegmentLen)
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: control character in %q", ErrUnsafeSegment, s)
		}
	}
	return nil
}

// JoinSegments validates every segment and joins them under baseDir. The
// joined path is then passed through ResolveSafePath so a symlinked directory
// inside baseDir cannot redirect the write elsewhere.
func JoinSegments(baseDir string, segments ...string) (string, error) {
	for _, seg := range segments {
		if err := ValidateSegment(seg); err != nil {
			return "", err
		}
	}
	return ResolveSafePath(baseDir, filepath.Join(segments...))
}

// ResolveSafePath resolves userPath relative to baseDir and returns the
// symlink-free result, failing if that result lies outside baseDir.
//
// Absolute userPath values are accepted as long as they resolve inside
// baseDir. Paths that do not exist yet are resolved through their nearest
// existing ancestor.
func ResolveSafePath(baseDir, userPath string) (string, error) {
	if strings.TrimSpace(userPath) == "" {
		return "", fmt.Errorf("path is empty or whitespace-only")
	}
	if strings.Contains(userPath, "\x00") {
		return "", fmt.Errorf("path contains null byte")
	}

	candidate := userPath
	if !filepath.IsAbs(userPath) {
		candidate = filepath.Join(baseDir, userPath)
	}
	candidate = filepath.Clean(candidate)

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to resolve symlinks: %w", err)
		}
		parent, err := resolveExistingParent(filepath.Dir(candidate))
		if err != nil {
			return "", fmt.Errorf("failed to resolve parent directory: %w", err)
		}
		resolved = filepath.Join(parent, filepath.Base(candidate))
	}

	baseResolved, err := resolveExistingParent(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	rel, err := filepath.Rel(baseResolved, resolved)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", userPath)
	}

	return resolved, nil
}

// resolveExistingParent resolves symlinks in the longest existing prefix of
// path and re-appends the missing tail unchanged.
func resolveExistingParent(path string) (string, error) {
	current := filepath.Clean(path)
	var missing []string

	for {
		if _, err := os.Lstat(current); err == nil {
			resolved, err := filepath.EvalSymlinks(current)
			if err != nil {
				return "", fmt.Errorf("failed to resolve existing parent: %w", err)
			}
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing parent directory found")
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}
