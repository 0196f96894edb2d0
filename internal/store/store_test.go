package store

import (
	"context"
	"errors"
	"sort"
	"testing"
)

type fixture struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("load absent key", func(t *testing.T) {
		m := NewMemory()
		if _, err := m.Load(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("Load() error = %v, want ErrKeyNotFound", err)
		}
	})

	t.Run("save then load", func(t *testing.T) {
		m := NewMemory()
		if err := m.Save(ctx, "k", []byte(`[1,2,3]`)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := m.Load(ctx, "k")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if string(got) != `[1,2,3]` {
			t.Errorf("Load() = %s, want [1,2,3]", got)
		}
	})

	t.Run("load returns a copy", func(t *testing.T) {
		m := NewMemory()
		if err := m.Save(ctx, "k", []byte(`abc`)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, _ := m.Load(ctx, "k")
		got[0] = 'z'

		again, _ := m.Load(ctx, "k")
		if string(again) != "abc" {
			t.Errorf("stored payload mutated through returned slice: %s", again)
		}
	})

	t.Run("keys", func(t *testing.T) {
		m := NewMemory()
		for _, k := range []string{"b", "a"} {
			if err := m.Save(ctx, k, []byte(`[]`)); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}
		keys, err := m.Keys(ctx)
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		sort.Strings(keys)
		if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
			t.Errorf("Keys() = %v, want [a b]", keys)
		}
	})
}

func TestCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	in := []fixture{{Name: "first", Count: 1}, {Name: "second", Count: 2}}
	if err := SaveCollection(ctx, m, KeyHabitTriggers, in); err != nil {
		t.Fatalf("SaveCollection() error = %v", err)
	}

	out, err := LoadCollection[fixture](ctx, m, KeyHabitTriggers)
	if err != nil {
		t.Fatalf("LoadCollection() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("LoadCollection() len = %d, want 2", len(out))
	}
	if out[0].Name != "first" || out[1].Count != 2 {
		t.Errorf("LoadCollection() = %v, want original items", out)
	}
}

func TestLoadCollection_AbsentKey(t *testing.T) {
	out, err := LoadCollection[fixture](context.Background(), NewMemory(), KeyGeoFences)
	if err != nil {
		t.Fatalf("LoadCollection() error = %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("LoadCollection() = %v, want empty non-nil slice", out)
	}
}

func TestLoadCollection_NullPayload(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Save(ctx, KeyAutomations, []byte(`null`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := LoadCollection[fixture](ctx, m, KeyAutomations)
	if err != nil {
		t.Fatalf("LoadCollection() error = %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("LoadCollection() = %v, want empty non-nil slice", out)
	}
}

func TestLoadCollection_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Save(ctx, KeySyncLogs, []byte(`{not json`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := LoadCollection[fixture](ctx, m, KeySyncLogs); err == nil {
		t.Error("LoadCollection() succeeded on corrupt payload")
	}
}
