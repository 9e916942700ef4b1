// Package journal stores free-text entries as one file per entry:
// <root>/journal/<type>/<id>.txt. Entry timestamps come from the file system.
package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/dataroot"
	"github.com/JamesPrial/mindful-journal/internal/pathutil"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

// DefaultType is used when a save request names no type.
const DefaultType = "personal"

// ErrInvalidEntry is returned when an entry type or id cannot be used as a
// file name inside the journal directory.
var ErrInvalidEntry = errors.New("invalid journal entry")

const entryExt = ".txt"

// MaxUpdated is the latest accepted Updated value: 9999-12-31T23:59:59.999Z
// in milliseconds. Larger values overflow a nanosecond time.Time.
const MaxUpdated = 253402300799999

// reservedID names the merge export, which shares the type directory with
// entries.
var reservedID = strings.TrimSuffix(MergedFileName, entryExt)

// Entry is one journal entry. Created and Updated are milliseconds since the
// Unix epoch, fractional like the front end expects.
type Entry struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Type    string  `json:"type"`
	Created float64 `json:"created"`
	Updated float64 `json:"updated"`
}

// SaveRequest describes one save. Empty Type and ID are defaulted. A non-nil,
// non-zero Updated forces the file's access and modification times.
type SaveRequest struct {
	Type    string
	ID      string
	Content string
	Updated *float64
}

// SaveResult reports where an entry was written.
type SaveResult struct {
	ID   string
	Type string
	Path string
}

// Store reads and writes journal entries under a data root.
type Store struct {
	root   *dataroot.Root
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for generated ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store. A nil logger is replaced with a no-op logger.
func NewStore(root *dataroot.Root, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		root:   root,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*entryLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every entry of every type, most recently updated first.
//
// A missing journal directory is created and yields an empty list. Files that
// cannot be read are logged and skipped.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	dir := s.root.JournalDir()
	entries := make([]Entry, 0)

	types, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := s.root.EnsureDir(dir); err != nil {
				return nil, err
			}
			return entries, nil
		}
		return nil, fmt.Errorf("failed to list journal directory: %w", err)
	}

	for _, typeDir := range types {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !isDir(dir, typeDir) {
			continue
		}
		entries = append(entries, s.readType(dir, typeDir.Name())...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Updated > entries[j].Updated
	})
	return entries, nil
}

// isDir follows symlinks, as os.path.isdir does.
func isDir(parent string, d os.DirEntry) bool {
	if d.IsDir() {
		return true
	}
	if d.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, d.Name()))
	return err == nil && info.IsDir()
}

func (s *Store) readType(journalDir, entryType string) []Entry {
	typeDir := filepath.Join(journalDir, entryType)
	files, err := os.ReadDir(typeDir)
	if err != nil {
		s.logger.Warn("failed to list journal type", zap.String("path", typeDir), zap.Error(err))
		return nil
	}

	out := make([]Entry, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if !strings.HasSuffix(name, entryExt) || f.IsDir() || name == MergedFileName {
			continue
		}
		path := filepath.Join(typeDir, name)
		entry, err := readEntry(path, entryType, strings.TrimSuffix(name, entryExt))
		if err != nil {
			s.logger.Warn("failed to read journal entry, skipping", zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, entry)
	}
	return out
}

func readEntry(path, entryType, id string) (Entry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:      id,
		Content: string(content),
		Type:    entryType,
		Created: millis(createdTime(info)),
		Updated: millis(info.ModTime()),
	}, nil
}

func millis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

// Save writes req.Content verbatim to the entry's file, replacing any earlier
// content. Type and ID must each be a single safe path segment.
func (s *Store) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}

	entryType := req.Type
	if entryType == "" {
		entryType = DefaultType
	}
	id := req.ID
	if id == "" {
		id = strconv.FormatInt(s.now().UnixMilli(), 10)
	}

	journalDir := s.root.JournalDir()
	if err := s.root.EnsureDir(journalDir); err != nil {
		return SaveResult{}, err
	}
	if err := pathutil.ValidateSegment(id); err != nil {
		return SaveResult{}, fmt.Errorf("%w: id: %w", ErrInvalidEntry, err)
	}
	if id == reservedID {
		return SaveResult{}, fmt.Errorf("%w: id %q is reserved for merge output", ErrInvalidEntry, id)
	}
	if req.Updated != nil && (*req.Updated < 0 || *req.Updated > MaxUpdated) {
		return SaveResult{}, fmt.Errorf("%w: updated %v out of range", ErrInvalidEntry, *req.Updated)
	}
	path, err := pathutil.JoinSegments(journalDir, entryType, id+entryExt)
	if err != nil {
		return SaveResult{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	unlock := s.lock(entryType + "/" + id)
	defer unlock()

	if err := s.root.EnsureDir(filepath.Dir(path)); err != nil {
		return SaveResult{}, err
	}
	if err := storage.WriteFileAtomic(path, []byte(req.Content)); err != nil {
		return SaveResult{}, fmt.Errorf("failed to write journal entry: %w", err)
	}

	if req.Updated != nil && *req.Updated != 0 {
		ts := time.Unix(0, int64(*req.Updated*float64(time.Millisecond)))
		if err := os.Chtimes(path, ts, ts); err != nil {
			return SaveResult{}, fmt.Errorf("failed to set entry timestamp: %w", err)
		}
	}

	s.logger.Debug("saved journal entry", zap.String("type", entryType), zap.String("id", id))
	return SaveResult{ID: id, Type: entryType, Path: path}, nil
}

// lock serializes saves of one (type, id) pair and drops the mutex once no
// caller holds it.
func (s *Store) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &entryLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
