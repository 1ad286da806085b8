package engine

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// RestoreDraft replaces the session with the locally saved snapshot,
// when one exists. Restoring a snapshot with exercises is the session's
// zero-to-one transition, so it establishes the remote record identity
// the same way a first edit does; the incomplete record left behind by
// the crashed session is adopted. A materialization failure is returned
// without touching the session, so the draft stays restorable.
func (e *Engine) RestoreDraft(ctx context.Context) (bool, error) {
	snap, ok := e.drafts.LoadSaved()
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, ErrSessionClosed
	}
	if !snap.Date.IsZero() {
		e.sess.Date = snap.Date
	}
	needsRecord := !e.hasWorkout && len(snap.Exercises) > 0
	e.mu.Unlock()

	if needsRecord {
		if err := e.materialize(ctx); err != nil {
			return false, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrSessionClosed
	}
	e.sess.Exercises = snap.Exercises
	e.sess.Notes = snap.Notes
	if !snap.StartTime.IsZero() {
		e.startTime = snap.StartTime
	}
	e.revision++
	e.schedulePushLocked()
	e.log.Info("draft restored", "exercises", len(snap.Exercises))
	return true, nil
}

// HasDraft reports whether a restorable snapshot exists without
// loading it into the session.
func (e *Engine) HasDraft() bool {
	_, ok := e.drafts.LoadSaved()
	return ok
}

// DiscardDraft drops the saved snapshot.
func (e *Engine) DiscardDraft() {
	e.drafts.ClearSaved()
}

// SaveDraft forces an immediate snapshot write, bypassing the
// autosave debounce.
func (e *Engine) SaveDraft() {
	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.drafts.Flush(snap)
}

// Abandon closes the engine and decides whether the remote record it
// materialized should be discarded. Only records this session created
// are candidates: adopted records belong to someone else's history and
// are never deleted. The draft snapshot survives so an abandoned
// session can still be restored later.
func (e *Engine) Abandon(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.pushTimer != nil {
		e.pushTimer.Stop()
		e.pushTimer = nil
	}
	hasWorkout := e.hasWorkout
	adopted := e.adopted
	workoutID := e.workoutID
	e.mu.Unlock()

	e.drafts.Stop()

	if !hasWorkout || adopted {
		return
	}

	meta, err := e.remote.WorkoutMeta(ctx, workoutID)
	if err != nil {
		e.log.Warn("abandonment check failed", "workout_id", workoutID, "error", err)
		return
	}
	if !shouldCleanup(meta, e.cfg.CleanupRecency, time.Now()) {
		return
	}
	if err := e.remote.DeleteWorkout(ctx, workoutID); err != nil {
		e.log.Warn("placeholder cleanup failed", "workout_id", workoutID, "error", err)
		return
	}
	e.log.Info("abandoned placeholder deleted", "workout_id", workoutID)
}

// shouldCleanup is the abandonment predicate: the record is still
// incomplete, has at least one logged exercise, was created within
// the recency window, and is not scheduled in the future. Future-dated
// records are planned workouts, not abandoned ones.
func shouldCleanup(meta models.WorkoutMeta, recency time.Duration, now time.Time) bool {
	if meta.IsCompleted {
		return false
	}
	if meta.ExerciseCount < 1 {
		return false
	}
	if now.Sub(meta.CreatedAt) > recency {
		return false
	}
	// WorkoutDate comes from a DATE column and reads as midnight UTC, so
	// both sides compare as UTC calendar days regardless of server zone.
	today := now.UTC().Truncate(24 * time.Hour)
	if meta.WorkoutDate.UTC().Truncate(24*time.Hour).After(today) {
		return false
	}
	return true
}

// Volume returns the current total session volume.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return session.TotalVolume(e.sess)
}
