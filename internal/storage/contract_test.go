package storage_test

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/JamesPrial/mindful-journal/internal/storage"
)

// runBackendContract exercises the behavior every ListBackend must share.
// newBackend must return an empty backend each call.
func runBackendContract(t *testing.T, newBackend func(t *testing.T) storage.ListBackend) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty bucket loads as non-nil empty slice", func(t *testing.T) {
		b := newBackend(t)
		items, err := b.Load(ctx, storage.KindTasks, storage.StatusActive)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if items == nil {
			t.Fatal("Load returned nil, want empty slice")
		}
		if len(items) != 0 {
			t.Fatalf("Load returned %d items, want 0", len(items))
		}
	})

	t.Run("save then load preserves order and fields", func(t *testing.T) {
		b := newBackend(t)
		want := []storage.Item{
			{"id": "t1", "text": "buy milk"},
			{"id": "t2", "text": "café ☕ <b>&</b>", "priority": json.Number("3")},
			{"id": "t3", "tags": []any{"a", "b"}, "meta": map[string]any{"done": false}},
		}
		if err := b.Save(ctx, storage.KindTasks, storage.StatusActive, want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := b.Load(ctx, storage.KindTasks, storage.StatusActive)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Load after Save:\n got  %#v\n want %#v", got, want)
		}
	})

	t.Run("buckets are isolated by kind and status", func(t *testing.T) {
		b := newBackend(t)
		if err := b.Save(ctx, storage.KindGoals, storage.StatusCompleted, []storage.Item{{"id": "g1"}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		for _, probe := range []struct {
			kind   storage.Kind
			status storage.Status
		}{
			{storage.KindGoals, storage.StatusActive},
			{storage.KindTasks, storage.StatusCompleted},
		} {
			items, err := b.Load(ctx, probe.kind, probe.status)
			if err != nil {
				t.Fatalf("Load(%s,%s): %v", probe.kind, probe.status, err)
			}
			if len(items) != 0 {
				t.Errorf("Load(%s,%s) = %v, want empty", probe.kind, probe.status, items)
			}
		}
	})

	t.Run("save replaces rather than appends", func(t *testing.T) {
		b := newBackend(t)
		_ = b.Save(ctx, storage.KindTasks, storage.StatusActive, []storage.Item{{"id": "a"}, {"id": "b"}})
		if err := b.Save(ctx, storage.KindTasks, storage.StatusActive, []storage.Item{{"id": "c"}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, _ := b.Load(ctx, storage.KindTasks, storage.StatusActive)
		if len(got) != 1 || got[0].ID() != "c" {
			t.Errorf("Load = %v, want only c", got)
		}
	})

	t.Run("save of nil writes empty bucket", func(t *testing.T) {
		b := newBackend(t)
		_ = b.Save(ctx, storage.KindTasks, storage.StatusActive, []storage.Item{{"id": "a"}})
		if err := b.Save(ctx, storage.KindTasks, storage.StatusActive, nil); err != nil {
			t.Fatalf("Save(nil): %v", err)
		}
		got, _ := b.Load(ctx, storage.KindTasks, storage.StatusActive)
		if len(got) != 0 {
			t.Errorf("Load = %v, want empty", got)
		}
	})

	t.Run("save all writes both buckets", func(t *testing.T) {
		b := newBackend(t)
		err := b.SaveAll(ctx, storage.KindGoals,
			storage.Bucket{Status: storage.StatusCompleted, Items: []storage.Item{{"id": "g1", "completed_at": "2025-01-01T00:00:00.000000"}}},
			storage.Bucket{Status: storage.StatusActive, Items: []storage.Item{{"id": "g2"}}},
		)
		if err != nil {
			t.Fatalf("SaveAll: %v", err)
		}
		active, _ := b.Load(ctx, storage.KindGoals, storage.StatusActive)
		completed, _ := b.Load(ctx, storage.KindGoals, storage.StatusCompleted)
		if len(active) != 1 || active[0].ID() != "g2" {
			t.Errorf("active = %v, want [g2]", active)
		}
		if len(completed) != 1 || completed[0].ID() != "g1" {
			t.Errorf("completed = %v, want [g1]", completed)
		}
	})
}
