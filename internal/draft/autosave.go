package draft

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// DefaultInterval is the debounce window between a change and the local
// write it triggers.
const DefaultInterval = 3 * time.Second

// AutoSaver tracks a baseline serialization of the draft snapshot and
// debounces writes of the full snapshot to the cache while dirty. It is
// a downstream observer of the session model, never an upstream source.
type AutoSaver struct {
	cache    Cache
	key      string
	interval time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	enabled   bool
	baseline  string
	dirty     bool
	lastSaved time.Time
	pending   models.DraftSnapshot
	timer     *time.Timer
	stopped   bool
}

// NewAutoSaver creates an autosaver for one editing session. The
// baseline starts at the serialization of an empty snapshot taken at
// mount, so the first real edit marks the draft dirty. A disabled
// autosaver (editing an already-saved workout) tracks nothing.
func NewAutoSaver(cache Cache, key string, interval time.Duration, enabled bool, log *slog.Logger) *AutoSaver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &AutoSaver{
		cache:    cache,
		key:      key,
		interval: interval,
		enabled:  enabled,
		log:      log,
	}
}

func serialize(snap models.DraftSnapshot) string {
	b, err := json.Marshal(snap)
	if err != nil {
		// Snapshot types contain nothing unmarshalable; treat as empty.
		return ""
	}
	return string(b)
}

// Update feeds the current snapshot into the autosaver. Dirtiness is
// structural: the serialization is compared against the last written
// baseline, no field-level diff is kept. While dirty the debounce timer
// is re-armed, so a burst of edits produces one write.
func (a *AutoSaver) Update(snap models.DraftSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled || a.stopped {
		return
	}

	serialized := serialize(snap)
	if serialized == a.baseline {
		a.dirty = false
		return
	}

	a.pending = snap
	a.dirty = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.interval, a.flushPending)
}

func (a *AutoSaver) flushPending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.dirty || a.stopped {
		return
	}
	a.writeLocked(a.pending)
}

// Flush performs the synchronous manual save of the given snapshot.
// Storage faults are logged and swallowed: the caller never observes
// them mid-edit, and LastSaved stays unchanged on failure.
func (a *AutoSaver) Flush(snap models.DraftSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled {
		return
	}
	a.writeLocked(snap)
}

func (a *AutoSaver) writeLocked(snap models.DraftSnapshot) {
	serialized := serialize(snap)
	if err := a.cache.Set(a.key, serialized); err != nil {
		a.log.Warn("draft write failed", "key", a.key, "error", err)
		return
	}
	a.baseline = serialized
	a.dirty = false
	a.lastSaved = time.Now()
}

// IsDirty reports whether the current snapshot differs from the last
// written baseline.
func (a *AutoSaver) IsDirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// LastSaved returns the time of the last successful local write, zero
// if none happened yet.
func (a *AutoSaver) LastSaved() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSaved
}

// LoadSaved returns the last locally stored snapshot, or false on
// absence or parse failure. Corrupt payloads are treated as absent.
func (a *AutoSaver) LoadSaved() (models.DraftSnapshot, bool) {
	payload, ok, err := a.cache.Get(a.key)
	if err != nil {
		a.log.Warn("draft read failed", "key", a.key, "error", err)
		return models.DraftSnapshot{}, false
	}
	if !ok {
		return models.DraftSnapshot{}, false
	}
	var snap models.DraftSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		a.log.Warn("draft parse failed, discarding", "key", a.key, "error", err)
		return models.DraftSnapshot{}, false
	}
	return snap, true
}

// ClearSaved removes the stored draft and resets dirty tracking to an
// empty baseline.
func (a *AutoSaver) ClearSaved() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.cache.Remove(a.key); err != nil {
		a.log.Warn("draft clear failed", "key", a.key, "error", err)
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.baseline = ""
	a.dirty = false
}

// Stop cancels any pending debounce write.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
	}
}
