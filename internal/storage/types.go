// Package storage persists goals and tasks as two buckets per kind.
//
// Items are opaque JSON objects; only their "id" key is interpreted. The
// default JSONBackend keeps the on-disk layout the front end already knows
// (<root>/<status>/<status>_<kind>.json). SQLite and PostgreSQL backends
// store the same buckets in a single table and can replace several buckets
// in one transaction.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidKind is returned for a kind other than goals or tasks.
var ErrInvalidKind = errors.New("invalid data type")

// Kind is the collection an item belongs to.
type Kind string

const (
	KindGoals Kind = "goals"
	KindTasks Kind = "tasks"
)

// Kinds lists every valid Kind.
func Kinds() []Kind { return []Kind{KindGoals, KindTasks} }

// ParseKind converts a URL segment into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGoals, KindTasks:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Status is the bucket an item currently lives in.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Statuses lists every Status in lookup order (active first).
func Statuses() []Status { return []Status{StatusActive, StatusCompleted} }

// Item is one goal or task. Fields other than "id" pass through untouched.
type Item map[string]any

// ID returns the item's id as a string. String ids are returned as-is and
// numeric ids keep their JSON text; anything else yields "".
func (it Item) ID() string {
	switch v := it["id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Clone returns a shallow copy of the item.
func (it Item) Clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// Bucket is the full content of one (kind, status) list.
type Bucket struct {
	Status Status
	Items  []Item
}

// ListBackend is the persistence contract for item buckets.
//
// Load returns a non-nil slice. Save replaces one bucket. SaveAll replaces
// several buckets of one kind together, in the order given; backends with
// transactions apply it atomically, the JSON backend narrows the window as
// far as rename allows.
type ListBackend interface {
	Load(ctx context.Context, kind Kind, status Status) ([]Item, error)
	Save(ctx context.Context, kind Kind, status Status, items []Item) error
	SaveAll(ctx context.Context, kind Kind, buckets ...Bucket) error
}

// Closer is implemented by backends holding resources.
type Closer interface {
	Close() error
}
