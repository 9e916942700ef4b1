package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// JSONBackend implements ListBackend with one JSON array file per bucket:
// <dir>/<status>/<status>_<kind>.json.
type JSONBackend struct {
	// Dir is the data folder holding the active/ and completed/ directories.
	Dir string

	logger *zap.Logger
}

// NewJSONBackend creates a JSONBackend rooted at dir. A nil logger is
// replaced with a no-op logger.
func NewJSONBackend(dir string, logger *zap.Logger) *JSONBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONBackend{Dir: dir, logger: logger}
}

// FilePath returns the file backing one bucket.
func (b *JSONBackend) FilePath(kind Kind, status Status) string {
	return filepath.Join(b.Dir, string(status), fmt.Sprintf("%s_%s.json", status, kind))
}

// Load reads one bucket.
//
// A missing file is an empty bucket. Unreadable files, invalid JSON and
// non-array JSON are logged and also treated as empty; Load never returns an
// error.
func (b *JSONBackend) Load(_ context.Context, kind Kind, status Status) ([]Item, error) {
	path := b.FilePath(kind, status)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			b.logger.Warn("failed to read list file, treating as empty",
				zap.String("path", path), zap.Error(err))
		}
		return make([]Item, 0), nil
	}

	items, err := decodeItems(data)
	if err != nil {
		b.logger.Warn("failed to parse list file, treating as empty",
			zap.String("path", path), zap.Error(err))
		return make([]Item, 0), nil
	}
	return items, nil
}

// Save atomically replaces one bucket's file.
func (b *JSONBackend) Save(_ context.Context, kind Kind, status Status, items []Item) error {
	data, err := encodeItems(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", status, kind, err)
	}
	path := b.FilePath(kind, status)
	if err := WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SaveAll writes every bucket to a temp file first and only then renames
// them into place in the order given. Callers moving an item pass the target
// bucket first, so a crash between renames leaves a duplicate rather than a
// lost item.
func (b *JSONBackend) SaveAll(_ context.Context, kind Kind, buckets ...Bucket) error {
	type pending struct{ tmp, path string }
	staged := make([]pending, 0, len(buckets))

	cleanup := func(from int) {
		for _, p := range staged[from:] {
			_ = os.Remove(p.tmp)
		}
	}

	for _, bucket := range buckets {
		data, err := encodeItems(bucket.Items)
		if err != nil {
			cleanup(0)
			return fmt.Errorf("failed to encode %s %s: %w", bucket.Status, kind, err)
		}
		path := b.FilePath(kind, bucket.Status)
		tmp, err := writeTemp(path, data)
		if err != nil {
			cleanup(0)
			return fmt.Errorf("failed to stage %s: %w", path, err)
		}
		staged = append(staged, pending{tmp: tmp, path: path})
	}

	for i, p := range staged {
		if err := os.Rename(p.tmp, p.path); err != nil {
			cleanup(i)
			return fmt.Errorf("failed to write %s: %w", p.path, err)
		}
	}
	return nil
}
