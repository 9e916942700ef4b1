// Package dataroot owns the on-disk layout shared by every store:
//
//	<root>/active/active_<kind>.json
//	<root>/completed/completed_<kind>.json
//	<root>/journal/<type>/<id>.txt
//
// A Root is a plain value built from configuration; nothing here is
// process-global.
package dataroot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Directory names under the root. They double as status names for list files.
const (
	ActiveDir    = "active"
	CompletedDir = "completed"
	JournalDir   = "journal"
)

// DefaultFolderName is the folder created on the user's desktop when no data
// directory is configured.
const DefaultFolderName = "MindfulJournalData"

// Root is the storage root directory.
type Root struct {
	path string
}

// New returns a Root for path. The path is made absolute but not created.
func New(path string) (*Root, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("data folder path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data folder %q: %w", path, err)
	}
	return &Root{path: abs}, nil
}

// DefaultPath returns ~/Desktop/MindfulJournalData.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, "Desktop", DefaultFolderName), nil
}

// Path returns the absolute root directory.
func (r *Root) Path() string { return r.path }

// StatusDir returns <root>/<status>.
func (r *Root) StatusDir(status string) string { return filepath.Join(r.path, status) }

// JournalDir returns <root>/journal.
func (r *Root) JournalDir() string { return filepath.Join(r.path, JournalDir) }

// Ensure creates the root and its fixed sub-directories. It is idempotent and
// cheap enough to call before every operation.
func (r *Root) Ensure() error {
	for _, dir := range []string{r.path, r.StatusDir(ActiveDir), r.StatusDir(CompletedDir), r.JournalDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureDir creates dir (and parents). Callers pass directories already
// validated to live inside the root.
func (r *Root) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
