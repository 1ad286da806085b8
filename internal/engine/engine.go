// Package engine implements the per-session synchronization and
// consistency engine. One Engine owns a single live editing session: it
// holds the in-memory session model, lazily materializes the remote
// workout record on the first real edit, keeps the remote store
// reconciled in the background, snapshots drafts locally, and decides
// on abandonment whether the record it created should be discarded.
//
// All cross-callback coordination state (tombstones, the in-flight
// creation guard, the revision counter, pending timers) lives in
// explicit fields of the Engine, so concurrent sessions never share
// state.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/draft"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// RemoteStore is the remote-store contract the engine consumes.
// *storage.DB satisfies it; tests use fakes.
type RemoteStore interface {
	FindIncompleteWorkout(ctx context.Context, subjectID uuid.UUID, date time.Time) (uuid.UUID, bool, error)
	CreateWorkout(ctx context.Context, trainerID uuid.UUID, workoutType string, date time.Time, selfLogged bool) (uuid.UUID, error)
	LinkSubject(ctx context.Context, workoutID, subjectID uuid.UUID) error
	DeleteWorkout(ctx context.Context, workoutID uuid.UUID) error
	MarkComplete(ctx context.Context, workoutID uuid.UUID, notes string, date time.Time) error
	WorkoutMeta(ctx context.Context, workoutID uuid.UUID) (models.WorkoutMeta, error)
	DeleteExercise(ctx context.Context, workoutID uuid.UUID, exerciseRef string) error
	ReplaceExercises(ctx context.Context, workoutID, subjectID uuid.UUID, pairMember *string, exercises []models.ExerciseEntry) error
	BestRecords(ctx context.Context, subjectID uuid.UUID, exerciseRef string, pairMember *string) ([]models.PersonalRecordRow, error)
	UpsertBestRecord(ctx context.Context, rec models.PersonalRecordRow) error
	InsertNotification(ctx context.Context, trainerID, subjectID uuid.UUID, kind, title, message string) error
}

var (
	// ErrEmptySession is returned by Save when there is nothing to save.
	ErrEmptySession = errors.New("session has no exercises")
	// ErrNotMaterialized is returned when an operation needs a remote
	// record identity that was never established.
	ErrNotMaterialized = errors.New("no remote workout record for session")
	// ErrSessionClosed is returned for operations on an abandoned engine.
	ErrSessionClosed = errors.New("session is closed")
)

// Config carries the engine's timing knobs. Zero values pick defaults.
type Config struct {
	// PushDebounce is the quiet window between an edit and the
	// reconciliation push it schedules.
	PushDebounce time.Duration
	// TombstoneGrace is how long a deleted exercise reference stays
	// tombstoned after its remote delete resolves, absorbing pushes
	// that were already in flight when the delete began.
	TombstoneGrace time.Duration
	// CleanupRecency bounds how old a freshly-created record may be and
	// still be deleted on abandonment.
	CleanupRecency time.Duration
	// WorkoutType is stored on materialized records ("personal", "pair").
	WorkoutType string
	// SelfLogged marks records created by a trainee working solo.
	SelfLogged bool
	// PairMember scopes a pair session's half, nil otherwise.
	PairMember *string
}

const (
	defaultPushDebounce   = 2 * time.Second
	defaultTombstoneGrace = 30 * time.Second
	defaultCleanupRecency = 10 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.PushDebounce <= 0 {
		c.PushDebounce = defaultPushDebounce
	}
	if c.TombstoneGrace <= 0 {
		c.TombstoneGrace = defaultTombstoneGrace
	}
	if c.CleanupRecency <= 0 {
		c.CleanupRecency = defaultCleanupRecency
	}
	if c.WorkoutType == "" {
		c.WorkoutType = "personal"
	}
	return c
}

// Engine is the stateful synchronization engine for one editing session.
type Engine struct {
	remote RemoteStore
	drafts *draft.AutoSaver
	log    *slog.Logger
	cfg    Config

	subjectID uuid.UUID
	trainerID uuid.UUID

	// createMu serializes materialization so rapid concurrent first
	// edits collapse to a single remote creation.
	createMu sync.Mutex

	mu         sync.Mutex
	sess       models.Session
	startTime  time.Time
	revision   uint64
	everPushed bool

	workoutID  uuid.UUID
	hasWorkout bool
	adopted    bool

	tombstones map[string]struct{}
	pushTimer  *time.Timer
	warnings   []string
	closed     bool
}

// New creates an engine for a fresh session on the given date.
func New(remote RemoteStore, drafts *draft.AutoSaver, log *slog.Logger, subjectID, trainerID uuid.UUID, date time.Time, cfg Config) *Engine {
	return &Engine{
		remote:     remote,
		drafts:     drafts,
		log:        log,
		cfg:        cfg.withDefaults(),
		subjectID:  subjectID,
		trainerID:  trainerID,
		sess:       session.New(date),
		startTime:  time.Now(),
		tombstones: make(map[string]struct{}),
	}
}

func (e *Engine) snapshotLocked() models.DraftSnapshot {
	return models.DraftSnapshot{
		Exercises: session.Clone(e.sess).Exercises,
		Notes:     e.sess.Notes,
		Date:      e.sess.Date,
		StartTime: e.startTime,
	}
}

// afterMutationLocked bumps the revision, feeds the autosaver, and
// schedules a reconciliation push. Call with e.mu held.
func (e *Engine) afterMutationLocked() {
	e.revision++
	e.drafts.Update(e.snapshotLocked())
	e.schedulePushLocked()
}

// schedulePushLocked re-arms the debounce timer. Superseding a pending
// timer with a new one is the cancellation model; no token needed.
func (e *Engine) schedulePushLocked() {
	if !e.hasWorkout || e.closed {
		return
	}
	if e.pushTimer != nil {
		e.pushTimer.Stop()
	}
	e.pushTimer = time.AfterFunc(e.cfg.PushDebounce, e.push)
}

// AddExercise appends an exercise to the session. On the transition
// from zero exercises to one it first materializes the remote workout
// record; a materialization failure is returned without mutating the
// session, blocking the edit as required.
func (e *Engine) AddExercise(ctx context.Context, ref models.ExerciseRef) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	needsRecord := !e.hasWorkout
	e.mu.Unlock()

	if needsRecord {
		if err := e.materialize(ctx); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrSessionClosed
	}
	e.sess = session.AddExercise(e.sess, ref)
	e.afterMutationLocked()
	return nil
}

// materialize establishes the remote workout record identity: adopt an
// existing incomplete record for the same subject and date if one
// exists, otherwise create a record plus its subject link. If linking
// fails the just-created record is deleted so nothing is orphaned.
func (e *Engine) materialize(ctx context.Context) error {
	e.createMu.Lock()
	defer e.createMu.Unlock()

	e.mu.Lock()
	if e.hasWorkout {
		e.mu.Unlock()
		return nil
	}
	date := e.sess.Date
	e.mu.Unlock()

	existing, found, err := e.remote.FindIncompleteWorkout(ctx, e.subjectID, date)
	if err != nil {
		return err
	}
	if found {
		e.mu.Lock()
		e.workoutID = existing
		e.hasWorkout = true
		e.adopted = true
		e.mu.Unlock()
		e.log.Info("adopted existing workout record", "workout_id", existing, "subject_id", e.subjectID)
		return nil
	}

	id, err := e.remote.CreateWorkout(ctx, e.trainerID, e.cfg.WorkoutType, date, e.cfg.SelfLogged)
	if err != nil {
		return err
	}
	if err := e.remote.LinkSubject(ctx, id, e.subjectID); err != nil {
		if delErr := e.remote.DeleteWorkout(ctx, id); delErr != nil {
			e.log.Warn("orphan cleanup after failed link", "workout_id", id, "error", delErr)
		}
		return err
	}

	e.mu.Lock()
	e.workoutID = id
	e.hasWorkout = true
	e.adopted = false
	e.mu.Unlock()
	e.log.Info("created workout record", "workout_id", id, "subject_id", e.subjectID)
	return nil
}

// RemoveExercise removes the exercise at the given position. The local
// state updates synchronously; the remote delete runs in the
// background with a tombstone guarding against a racing reconciliation
// push resurrecting the exercise.
func (e *Engine) RemoveExercise(ctx context.Context, index int) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	if index < 0 || index >= len(e.sess.Exercises) {
		e.mu.Unlock()
		return errors.New("exercise index out of range")
	}
	ref := e.sess.Exercises[index].Exercise.ID

	next, err := session.RemoveExercise(e.sess, index)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.sess = next
	e.tombstones[ref] = struct{}{}
	hasWorkout := e.hasWorkout
	workoutID := e.workoutID
	e.afterMutationLocked()
	e.mu.Unlock()

	if !hasWorkout {
		// Nothing remote to delete; the tombstone has no push to guard.
		e.clearTombstone(ref)
		return nil
	}

	go func() {
		dctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.remote.DeleteExercise(dctx, workoutID, ref); err != nil {
			e.log.Warn("remote exercise delete failed", "workout_id", workoutID, "exercise", ref, "error", err)
		}
		// Hold the tombstone for the grace window even when the delete
		// resolved instantly, to absorb a push already in flight.
		time.AfterFunc(e.cfg.TombstoneGrace, func() { e.clearTombstone(ref) })
	}()
	return nil
}

func (e *Engine) clearTombstone(ref string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// The same ref may have been re-added and re-deleted; dropping the
	// entry is idempotent either way.
	delete(e.tombstones, ref)
}

// push is the debounced reconciliation pass: filter tombstoned refs,
// guard against duplicates, and replace the remote exercise list with
// the current local state.
func (e *Engine) push() {
	e.mu.Lock()
	if e.closed || !e.hasWorkout {
		e.mu.Unlock()
		return
	}
	rev := e.revision
	workoutID := e.workoutID

	filtered := make([]models.ExerciseEntry, 0, len(e.sess.Exercises))
	cloned := session.Clone(e.sess)
	for _, ex := range cloned.Exercises {
		if _, deleting := e.tombstones[ex.Exercise.ID]; deleting {
			continue
		}
		filtered = append(filtered, ex)
	}

	// Duplicate references would corrupt the remote record. Repair the
	// session itself, not just the outgoing list, and abort this cycle
	// with a user-visible warning.
	if dups := session.DuplicateRefs(models.Session{Exercises: filtered}); len(dups) > 0 {
		e.sess = session.StripDuplicates(e.sess)
		e.revision++
		e.warnings = append(e.warnings, "duplicate exercise entries were removed")
		e.drafts.Update(e.snapshotLocked())
		e.log.Warn("duplicate exercise refs repaired, push aborted", "workout_id", workoutID, "refs", dups)
		e.mu.Unlock()
		return
	}

	// Before anything was ever pushed an empty list means there is
	// genuinely nothing to reconcile. Afterwards an empty list is
	// pushed explicitly so removing the last exercise propagates.
	if len(filtered) == 0 && len(e.tombstones) == 0 && !e.everPushed {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	pctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := e.remote.ReplaceExercises(pctx, workoutID, e.subjectID, e.cfg.PairMember, filtered)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		// No explicit backoff: the next edit re-arms the debounce and
		// retries with then-current state.
		e.log.Warn("reconciliation push failed", "workout_id", workoutID, "error", err)
		return
	}
	if rev != e.revision {
		// Stale response: the session moved on while the push was in
		// flight. The newer revision has its own push scheduled.
		e.log.Debug("discarding stale push result", "pushed_revision", rev, "current", e.revision)
		return
	}
	e.everPushed = true
	e.log.Debug("reconciled", "workout_id", workoutID, "exercises", len(filtered))
}

// TakeWarnings drains accumulated user-visible warnings, such as the
// duplicate-repair notice.
func (e *Engine) TakeWarnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.warnings
	e.warnings = nil
	return w
}

// State returns a deep copy of the current session plus display
// metadata. The session model is the single source of truth; remote
// state never flows back through here.
func (e *Engine) State() (models.Session, StateMeta) {
	e.mu.Lock()
	defer e.mu.Unlock()
	meta := StateMeta{
		Revision:    e.revision,
		TotalVolume: session.TotalVolume(e.sess),
		Dirty:       e.drafts.IsDirty(),
		LastSaved:   e.drafts.LastSaved(),
		StartTime:   e.startTime,
	}
	if e.hasWorkout {
		id := e.workoutID
		meta.WorkoutID = &id
		meta.Adopted = e.adopted
	}
	return session.Clone(e.sess), meta
}

// StateMeta accompanies session state on reads.
type StateMeta struct {
	Revision    uint64     `json:"revision"`
	TotalVolume float64    `json:"total_volume"`
	Dirty       bool       `json:"dirty"`
	LastSaved   time.Time  `json:"last_saved,omitzero"`
	StartTime   time.Time  `json:"start_time"`
	WorkoutID   *uuid.UUID `json:"workout_id,omitempty"`
	Adopted     bool       `json:"adopted,omitempty"`
}
