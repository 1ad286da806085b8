package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// SaveResult reports what an explicit save accomplished.
type SaveResult struct {
	WorkoutID     string                             `json:"workout_id"`
	TotalVolume   float64                            `json:"total_volume"`
	ExerciseCount int                                `json:"exercise_count"`
	Summaries     map[string]session.ExerciseSummary `json:"summaries,omitempty"`
	Records       []models.RecordDelta               `json:"records,omitempty"`
	Warnings      []string                           `json:"warnings,omitempty"`
}

// Save performs an explicit save: the final exercise list is pushed
// synchronously, the remote record is marked completed with the
// session's notes and date, new personal bests are detected and
// stored, and the local draft is cleared. Unlike a reconciliation
// push, failures here surface to the caller.
func (e *Engine) Save(ctx context.Context) (*SaveResult, error) {
	return e.save(ctx, true)
}

// AutoSave is Save without the record detector and the notification:
// it persists and completes the session but skips the celebration
// work, which is only owed to an explicit user action.
func (e *Engine) AutoSave(ctx context.Context) (*SaveResult, error) {
	return e.save(ctx, false)
}

func (e *Engine) save(ctx context.Context, explicit bool) (*SaveResult, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if len(e.sess.Exercises) == 0 {
		e.mu.Unlock()
		return nil, ErrEmptySession
	}
	if !e.hasWorkout {
		e.mu.Unlock()
		return nil, ErrNotMaterialized
	}
	// A pending debounced push would race the final one; supersede it.
	if e.pushTimer != nil {
		e.pushTimer.Stop()
		e.pushTimer = nil
	}

	var warnings []string
	if dups := session.DuplicateRefs(e.sess); len(dups) > 0 {
		e.sess = session.StripDuplicates(e.sess)
		e.revision++
		warnings = append(warnings, "duplicate exercise entries were removed")
		e.log.Warn("duplicate exercise refs repaired before save", "refs", dups)
	}

	snap := session.Clone(e.sess)
	workoutID := e.workoutID
	rev := e.revision
	deleting := make(map[string]struct{}, len(e.tombstones))
	for ref := range e.tombstones {
		deleting[ref] = struct{}{}
	}
	e.mu.Unlock()

	exercises := make([]models.ExerciseEntry, 0, len(snap.Exercises))
	for _, ex := range snap.Exercises {
		if _, gone := deleting[ex.Exercise.ID]; !gone {
			exercises = append(exercises, ex)
		}
	}

	if err := e.remote.ReplaceExercises(ctx, workoutID, e.subjectID, e.cfg.PairMember, exercises); err != nil {
		return nil, fmt.Errorf("saving exercises: %w", err)
	}
	if err := e.remote.MarkComplete(ctx, workoutID, snap.Notes, snap.Date); err != nil {
		return nil, fmt.Errorf("completing workout: %w", err)
	}

	e.mu.Lock()
	e.everPushed = true
	if rev == e.revision {
		// The saved state is now the remote truth; nothing left to push.
		if e.pushTimer != nil {
			e.pushTimer.Stop()
			e.pushTimer = nil
		}
	}
	e.mu.Unlock()

	res := &SaveResult{
		WorkoutID:     workoutID.String(),
		TotalVolume:   session.TotalVolume(snap),
		ExerciseCount: len(exercises),
		Warnings:      warnings,
	}

	if explicit {
		res.Summaries = make(map[string]session.ExerciseSummary, len(exercises))
		for _, ex := range exercises {
			res.Summaries[ex.Exercise.ID] = session.Summary(ex)
		}
		res.Records = e.detectRecords(ctx, workoutID, exercises)
		if e.cfg.SelfLogged && e.subjectID != e.trainerID {
			e.notifyTrainer(ctx, res)
		}
	}

	e.drafts.ClearSaved()
	e.log.Info("session saved", "workout_id", workoutID, "exercises", len(exercises), "explicit", explicit)
	return res, nil
}

// detectRecords compares each saved exercise's best set against the
// stored personal bests and upserts improvements. A delta is reported
// only when a previous record existed; first-time entries are stored
// silently. Detection errors never fail the save.
func (e *Engine) detectRecords(ctx context.Context, workoutID uuid.UUID, exercises []models.ExerciseEntry) []models.RecordDelta {
	var deltas []models.RecordDelta
	now := time.Now()
	for _, ex := range exercises {
		best := achievedBests(ex)
		if best.weight <= 0 && best.reps <= 0 && best.volume <= 0 {
			continue
		}
		stored, err := e.remote.BestRecords(ctx, e.subjectID, ex.Exercise.ID, e.cfg.PairMember)
		if err != nil {
			e.log.Warn("personal record lookup failed", "exercise", ex.Exercise.ID, "error", err)
			continue
		}
		prev := indexRecords(stored)

		for _, c := range []struct {
			kind  models.RecordKind
			value float64
		}{
			{models.RecordMaxWeight, best.weight},
			{models.RecordMaxReps, float64(best.reps)},
			{models.RecordMaxVolume, best.volume},
		} {
			if c.value <= 0 {
				continue
			}
			old, had := prev[c.kind]
			if had && c.value <= old {
				continue
			}
			rec := models.PersonalRecordRow{
				SubjectID:  e.subjectID,
				ExerciseID: ex.Exercise.ID,
				Kind:       c.kind,
				PairMember: e.cfg.PairMember,
				WorkoutID:  workoutID,
				AchievedAt: now,
			}
			switch c.kind {
			case models.RecordMaxWeight:
				w := best.weight
				rec.Weight = &w
			case models.RecordMaxReps:
				r := best.reps
				rec.Reps = &r
			case models.RecordMaxVolume:
				v := best.volume
				rec.Volume = &v
			}
			if err := e.remote.UpsertBestRecord(ctx, rec); err != nil {
				e.log.Warn("personal record upsert failed", "exercise", ex.Exercise.ID, "kind", c.kind, "error", err)
				continue
			}
			if had {
				deltas = append(deltas, models.RecordDelta{
					Exercise: ex.Exercise,
					Kind:     c.kind,
					OldValue: old,
					NewValue: c.value,
				})
			}
		}
	}
	return deltas
}

type bests struct {
	weight float64
	reps   int
	volume float64
}

// achievedBests scans the main lift of each set; supersets and
// dropsets contribute to volume totals but not to records.
func achievedBests(ex models.ExerciseEntry) bests {
	var b bests
	for _, set := range ex.Sets {
		if set.Weight > b.weight {
			b.weight = set.Weight
		}
		if set.Reps > b.reps {
			b.reps = set.Reps
		}
		if v := set.Weight * float64(set.Reps); v > b.volume {
			b.volume = v
		}
	}
	return b
}

func indexRecords(rows []models.PersonalRecordRow) map[models.RecordKind]float64 {
	out := make(map[models.RecordKind]float64, len(rows))
	for _, r := range rows {
		switch r.Kind {
		case models.RecordMaxWeight:
			if r.Weight != nil {
				out[r.Kind] = *r.Weight
			}
		case models.RecordMaxReps:
			if r.Reps != nil {
				out[r.Kind] = float64(*r.Reps)
			}
		case models.RecordMaxVolume:
			if r.Volume != nil {
				out[r.Kind] = *r.Volume
			}
		}
	}
	return out
}

func (e *Engine) notifyTrainer(ctx context.Context, res *SaveResult) {
	title := "Workout logged"
	msg := fmt.Sprintf("Completed %d exercises, %.0f total volume", res.ExerciseCount, res.TotalVolume)
	if n := len(res.Records); n > 0 {
		msg = fmt.Sprintf("%s, %d new personal records", msg, n)
	}
	if err := e.remote.InsertNotification(ctx, e.trainerID, e.subjectID, "workout_completed", title, msg); err != nil {
		e.log.Warn("trainer notification failed", "error", err)
	}
}
