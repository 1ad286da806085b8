package engine

import (
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// apply runs a session transform under the lock and triggers the usual
// post-mutation work when it succeeds.
func (e *Engine) apply(fn func(models.Session) (models.Session, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrSessionClosed
	}
	next, err := fn(e.sess)
	if err != nil {
		return err
	}
	e.sess = next
	e.afterMutationLocked()
	return nil
}

// applyUI is apply for presentation-only state: it skips the draft
// snapshot and the reconciliation push, neither of which carries
// minimize or collapse flags.
func (e *Engine) applyUI(fn func(models.Session) models.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrSessionClosed
	}
	e.sess = fn(e.sess)
	return nil
}

// AddSet appends a set to the exercise at the given position,
// inheriting weight and reps from the previous set when it has any.
func (e *Engine) AddSet(exerciseIndex int) error {
	return e.apply(func(s models.Session) (models.Session, error) {
		return session.AddSet(s, exerciseIndex)
	})
}

// RemoveSet removes a set; remaining sets are renumbered.
func (e *Engine) RemoveSet(exerciseIndex, setIndex int) error {
	return e.apply(func(s models.Session) (models.Session, error) {
		return session.RemoveSet(s, exerciseIndex, setIndex)
	})
}

// DuplicateSet inserts a copy of a set directly after it.
func (e *Engine) DuplicateSet(exerciseIndex, setIndex int) error {
	return e.apply(func(s models.Session) (models.Session, error) {
		return session.DuplicateSet(s, exerciseIndex, setIndex)
	})
}

// UpdateSet applies a single-field edit addressed by wire field name.
func (e *Engine) UpdateSet(exerciseIndex, setIndex int, field string, value any) error {
	return e.apply(func(s models.Session) (models.Session, error) {
		return session.UpdateSet(s, exerciseIndex, setIndex, field, value)
	})
}

// SetNotes replaces the session notes.
func (e *Engine) SetNotes(notes string) error {
	return e.apply(func(s models.Session) (models.Session, error) {
		return session.SetNotes(s, notes), nil
	})
}

// SetDate moves the session to another date. The remote record, if
// one exists, keeps its original date until save.
func (e *Engine) SetDate(date time.Time) error {
	return e.apply(func(s models.Session) (models.Session, error) {
		return session.SetDate(s, date), nil
	})
}

// ToggleMinimize flips an exercise card open or closed.
func (e *Engine) ToggleMinimize(exerciseLocalID string) error {
	return e.applyUI(func(s models.Session) models.Session {
		return session.ToggleMinimize(s, exerciseLocalID)
	})
}

// CompleteExercise minimizes an exercise after its last set is done.
func (e *Engine) CompleteExercise(exerciseLocalID string) error {
	return e.applyUI(func(s models.Session) models.Session {
		return session.CompleteExercise(s, exerciseLocalID)
	})
}

// ToggleCollapseSet opens one set row, collapsing its siblings.
func (e *Engine) ToggleCollapseSet(setLocalID string) error {
	return e.applyUI(func(s models.Session) models.Session {
		return session.ToggleCollapseSet(s, setLocalID)
	})
}

// ExpandAllSets expands every set row of one exercise.
func (e *Engine) ExpandAllSets(exerciseIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrSessionClosed
	}
	next, err := session.ExpandAllSets(e.sess, exerciseIndex)
	if err != nil {
		return err
	}
	e.sess = next
	return nil
}

// CompleteSetAndMoveNext collapses the finished set and opens the next.
func (e *Engine) CompleteSetAndMoveNext(exerciseIndex, setIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrSessionClosed
	}
	next, err := session.CompleteSetAndMoveNext(e.sess, exerciseIndex, setIndex)
	if err != nil {
		return err
	}
	e.sess = next
	return nil
}
