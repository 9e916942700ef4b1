// Package lists implements the goal and task lifecycle on top of a
// storage.ListBackend: add to active, update or delete wherever the item
// lives, and move items between active and completed.
//
// Every operation holds a per-kind lock for its whole read-modify-write, so
// concurrent requests in one process cannot interleave on the same kind.
package lists

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/storage"
)

// CompletedAtField is stamped on items entering the completed bucket.
const CompletedAtField = "completed_at"

// TimestampLayout matches an ISO-8601 local timestamp with microseconds and
// no zone, the format the front end already stores.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var (
	// ErrNotFound is returned when no item with the id exists in the
	// bucket(s) searched.
	ErrNotFound = errors.New("item not found")

	// ErrInvalidItem is returned for a nil or empty item body.
	ErrInvalidItem = errors.New("no data provided")
)

// StorageError reports a failed write. Failed reads never surface; they are
// logged and treated as empty buckets.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// Lists is the combined view of one kind.
type Lists struct {
	Active    []storage.Item `json:"active"`
	Completed []storage.Item `json:"completed"`
}

// Observer receives one call per finished operation. result is "ok",
// "not_found" or "error".
type Observer func(kind storage.Kind, op, result string)

// Service applies list operations to a backend.
type Service struct {
	backend  storage.ListBackend
	logger   *zap.Logger
	now      func() time.Time
	observer Observer

	locks map[storage.Kind]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now for completed_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver registers a callback invoked after each operation.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a Service. A nil logger is replaced with a no-op logger.
func NewService(backend storage.ListBackend, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		backend: backend,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[storage.Kind]*sync.Mutex, len(storage.Kinds())),
	}
	for _, k := range storage.Kinds() {
		s.locks[k] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lock(kind storage.Kind) func() {
	mu, ok := s.locks[kind]
	if !ok {
		// ParseKind guards callers; an unknown kind here is a programming error.
		panic(fmt.Sprintf("lists: unknown kind %q", kind))
	}
	mu.Lock()
	return mu.Unlock
}

// load reads a bucket for display, logging and swallowing backend errors.
// Writers use loadForWrite instead so a failed read never overwrites data.
func (s *Service) load(ctx context.Context, kind storage.Kind, status storage.Status) []storage.Item {
	items, err := s.backend.Load(ctx, kind, status)
	if err != nil {
		s.logger.Warn("failed to load list, treating as empty",
			zap.String("kind", string(kind)),
			zap.String("status", string(status)),
			zap.Error(err))
		return make([]storage.Item, 0)
	}
	return items
}

// loadForWrite reads a bucket that is about to be rewritten. A backend
// failure aborts the operation as a *StorageError.
func (s *Service) loadForWrite(ctx context.Context, kind storage.Kind, status storage.Status) ([]storage.Item, error) {
	items, err := s.backend.Load(ctx, kind, status)
	if err != nil {
		return nil, &StorageError{Op: fmt.Sprintf("load %s %s", status, kind), Err: err}
	}
	return items, nil
}

func (s *Service) observe(kind storage.Kind, op string, err error) {
	if s.observer == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	s.observer(kind, op, result)
}

// Get returns both buckets of kind.
func (s *Service) Get(ctx context.Context, kind storage.Kind) (Lists, error) {
	unlock := s.lock(kind)
	defer unlock()

	out := Lists{
		Active:    s.load(ctx, kind, storage.StatusActive),
		Completed: s.load(ctx, kind, storage.StatusCompleted),
	}
	s.observe(kind, "get", nil)
	return out, nil
}

// Add appends item to the active bucket unchanged. Ids are neither checked
// nor de-duplicated.
func (s *Service) Add(ctx context.Context, kind storage.Kind, item storage.Item) (err error) {
	defer func() { s.observe(kind, "add", err) }()
	if len(item) == 0 {
		return ErrInvalidItem
	}

	unlock := s.lock(kind)
	defer unlock()

	active, err := s.loadForWrite(ctx, kind, storage.StatusActive)
	if err != nil {
		return err
	}
	active = append(active, item)
	if err := s.backend.Save(ctx, kind, storage.StatusActive, active); err != nil {
		return &StorageError{Op: "save active " + string(kind), Err: err}
	}
	return nil
}

// Update replaces the first item with id, looking in active before
// completed. The replacement is stored as given; fields are not merged.
func (s *Service) Update(ctx context.Context, kind storage.Kind, id string, item storage.Item) (err error) {
	defer func() { s.observe(kind, "update", err) }()
	if len(item) == 0 {
		return ErrInvalidItem
	}

	unlock := s.lock(kind)
	defer unlock()

	for _, status := range storage.Statuses() {
		items, err := s.loadForWrite(ctx, kind, status)
		if err != nil {
			return err
		}
		idx := indexOf(items, id)
		if idx < 0 {
			continue
		}
		items[idx] = item
		if err := s.backend.Save(ctx, kind, status, items); err != nil {
			return &StorageError{Op: fmt.Sprintf("save %s %s", status, kind), Err: err}
		}
		return nil
	}
	return ErrNotFound
}

// Delete removes every item with id from active. Only when active held none
// is completed tried. Only the modified bucket is written.
func (s *Service) Delete(ctx context.Context, kind storage.Kind, id string) (err error) {
	defer func() { s.observe(kind, "delete", err) }()

	unlock := s.lock(kind)
	defer unlock()

	for _, status := range storage.Statuses() {
		items, err := s.loadForWrite(ctx, kind, status)
		if err != nil {
			return err
		}
		kept := without(items, id)
		if len(kept) == len(items) {
			continue
		}
		if err := s.backend.Save(ctx, kind, status, kept); err != nil {
			return &StorageError{Op: fmt.Sprintf("save %s %s", status, kind), Err: err}
		}
		return nil
	}
	return ErrNotFound
}

// Complete moves an item from active to completed and stamps completed_at.
func (s *Service) Complete(ctx context.Context, kind storage.Kind, id string) error {
	return s.Move(ctx, kind, id, storage.StatusActive, storage.StatusCompleted)
}

// Reactivate moves an item from completed back to active and drops its
// completed_at stamp.
func (s *Service) Reactivate(ctx context.Context, kind storage.Kind, id string) error {
	return s.Move(ctx, kind, id, storage.StatusCompleted, storage.StatusActive)
}

// Move takes the first item with id out of from and appends it to to. When
// to is completed the item gets a fresh completed_at; when it is active the
// field is removed. Both buckets are written together, target first. Nothing
// is written when the id is absent from from.
func (s *Service) Move(ctx context.Context, kind storage.Kind, id string, from, to storage.Status) (err error) {
	op := "complete"
	if to == storage.StatusActive {
		op = "reactivate"
	}
	defer func() { s.observe(kind, op, err) }()

	if from == to {
		return fmt.Errorf("cannot move %s item within %s", kind, from)
	}

	unlock := s.lock(kind)
	defer unlock()

	source, err := s.loadForWrite(ctx, kind, from)
	if err != nil {
		return err
	}
	idx := indexOf(source, id)
	if idx < 0 {
		return ErrNotFound
	}
	target, err := s.loadForWrite(ctx, kind, to)
	if err != nil {
		return err
	}

	moved := source[idx].Clone()
	remaining := make([]storage.Item, 0, len(source)-1)
	remaining = append(remaining, source[:idx]...)
	remaining = append(remaining, source[idx+1:]...)

	if to == storage.StatusCompleted {
		moved[CompletedAtField] = s.now().Format(TimestampLayout)
	} else {
		delete(moved, CompletedAtField)
	}
	target = append(target, moved)

	if err := s.backend.SaveAll(ctx, kind,
		storage.Bucket{Status: to, Items: target},
		storage.Bucket{Status: from, Items: remaining},
	); err != nil {
		return &StorageError{Op: fmt.Sprintf("move %s %s to %s", kind, id, to), Err: err}
	}

	s.logger.Debug("moved item",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

func indexOf(items []storage.Item, id string) int {
	for i, it := range items {
		if it.ID() == id {
			return i
		}
	}
	return -1
}

func without(items []storage.Item, id string) []storage.Item {
	kept := make([]storage.Item, 0, len(items))
	for _, it := range items {
		if it.ID() != id {
			kept = append(kept, it)
		}
	}
	return kept
}
