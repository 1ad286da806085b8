package draft

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// memCache is an in-memory Cache with injectable failures.
type memCache struct {
	data    map[string]string
	failSet bool
	failGet bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string)}
}

func (m *memCache) Get(key string) (string, bool, error) {
	if m.failGet {
		return "", false, errors.New("cache unavailable")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(key, value string) error {
	if m.failSet {
		return errors.New("quota exceeded")
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Remove(key string) error {
	delete(m.data, key)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func snapshotWithExercise() models.DraftSnapshot {
	return models.DraftSnapshot{
		Exercises: []models.ExerciseEntry{{
			LocalID:  "x1",
			Exercise: models.ExerciseRef{ID: "e1", Name: "Bench Press"},
			Sets:     []models.SetEntry{{LocalID: "s1", SetNumber: 1, Weight: 100, Reps: 5, Type: models.SetRegular}},
		}},
		Notes: "felt strong",
		Date:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestDirtyTracking(t *testing.T) {
	a := NewAutoSaver(newMemCache(), "draft_t1", time.Hour, true, discardLogger())

	if a.IsDirty() {
		t.Fatal("fresh autosaver reports dirty")
	}

	a.Update(snapshotWithExercise())
	if !a.IsDirty() {
		t.Fatal("changed snapshot not reported dirty")
	}

	a.Flush(snapshotWithExercise())
	if a.IsDirty() {
		t.Error("still dirty after flush")
	}
	if a.LastSaved().IsZero() {
		t.Error("LastSaved zero after successful flush")
	}

	// Re-feeding the flushed snapshot must compare clean against the
	// new baseline.
	a.Update(snapshotWithExercise())
	if a.IsDirty() {
		t.Error("identical snapshot reported dirty after baseline reset")
	}
}

func TestDebouncedWrite(t *testing.T) {
	cache := newMemCache()
	a := NewAutoSaver(cache, "draft_t1", 10*time.Millisecond, true, discardLogger())

	a.Update(snapshotWithExercise())
	if _, ok := cache.data["draft_t1"]; ok {
		t.Fatal("write happened before debounce window elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := cache.data["draft_t1"]; ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced write never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if a.IsDirty() {
		t.Error("still dirty after debounced write")
	}
}

// TestFlushFailureDegrades: a failing cache write must not propagate,
// and LastSaved must be unchanged.
func TestFlushFailureDegrades(t *testing.T) {
	cache := newMemCache()
	cache.failSet = true
	a := NewAutoSaver(cache, "draft_t1", time.Hour, true, discardLogger())

	a.Update(snapshotWithExercise())
	before := a.LastSaved()
	a.Flush(snapshotWithExercise())

	if got := a.LastSaved(); got != before {
		t.Errorf("LastSaved changed across failed flush: %v -> %v", before, got)
	}
	if !a.IsDirty() {
		t.Error("failed flush cleared dirty flag")
	}
}

func TestRoundTrip(t *testing.T) {
	cache := newMemCache()
	a := NewAutoSaver(cache, "draft_t1", time.Hour, true, discardLogger())

	want := snapshotWithExercise()
	a.Flush(want)

	got, ok := a.LoadSaved()
	if !ok {
		t.Fatal("LoadSaved found nothing after flush")
	}
	if serialize(got) != serialize(want) {
		t.Errorf("round-trip mismatch:\n got %s\nwant %s", serialize(got), serialize(want))
	}
}

func TestLoadSavedCorrupt(t *testing.T) {
	cache := newMemCache()
	cache.data["draft_t1"] = "{not json"
	a := NewAutoSaver(cache, "draft_t1", time.Hour, true, discardLogger())

	if _, ok := a.LoadSaved(); ok {
		t.Error("corrupt payload should read as absent")
	}
}

func TestLoadSavedReadFailure(t *testing.T) {
	cache := newMemCache()
	cache.failGet = true
	a := NewAutoSaver(cache, "draft_t1", time.Hour, true, discardLogger())

	if _, ok := a.LoadSaved(); ok {
		t.Error("read failure should degrade to absent")
	}
}

func TestClearSaved(t *testing.T) {
	cache := newMemCache()
	a := NewAutoSaver(cache, "draft_t1", time.Hour, true, discardLogger())

	a.Flush(snapshotWithExercise())
	a.ClearSaved()

	if _, ok := a.LoadSaved(); ok {
		t.Error("draft still present after ClearSaved")
	}
	if a.IsDirty() {
		t.Error("dirty after ClearSaved")
	}
}

func TestDisabledAutosaverIsInert(t *testing.T) {
	cache := newMemCache()
	a := NewAutoSaver(cache, "draft_t1", time.Hour, false, discardLogger())

	a.Update(snapshotWithExercise())
	a.Flush(snapshotWithExercise())

	if a.IsDirty() {
		t.Error("disabled autosaver tracks dirtiness")
	}
	if len(cache.data) != 0 {
		t.Error("disabled autosaver wrote to cache")
	}
}

func TestSQLiteCache(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	if _, ok, err := cache.Get("k"); err != nil || ok {
		t.Fatalf("Get on empty cache = ok=%v err=%v", ok, err)
	}
	if err := cache.Set("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := cache.Set("k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := cache.Get("k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("Get = %q ok=%v err=%v, want v2", v, ok, err)
	}
	if err := cache.Remove("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := cache.Get("k"); ok {
		t.Error("key present after Remove")
	}
}
