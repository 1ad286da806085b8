package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/liftlog/internal/models"
)

// ErrWorkoutNotFound is returned when a workout id resolves to nothing.
var ErrWorkoutNotFound = errors.New("workout not found")

// FindIncompleteWorkout looks for an existing incomplete workout for the
// subject on the given calendar date, e.g. a pre-scheduled slot created
// by the calendar. Returns the id of the most recently created match.
func (db *DB) FindIncompleteWorkout(ctx context.Context, subjectID uuid.UUID, date time.Time) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT w.id FROM workouts w
		 JOIN workout_subjects ws ON ws.workout_id = w.id
		 WHERE ws.subject_id = $1 AND w.workout_date = $2 AND NOT w.is_completed
		 ORDER BY w.created_at DESC LIMIT 1`,
		subjectID, date.Format("2006-01-02")).Scan(&id)
	if err == pgx.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("finding incomplete workout: %w", err)
	}
	return id, true, nil
}

// CreateWorkout inserts a new incomplete workout record and returns its
// identity.
func (db *DB) CreateWorkout(ctx context.Context, trainerID uuid.UUID, workoutType string, date time.Time, selfLogged bool) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, trainer_id, workout_type, workout_date, is_completed, is_self_logged)
		 VALUES ($1, $2, $3, $4, false, $5)`,
		id, trainerID, workoutType, date.Format("2006-01-02"), selfLogged)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating workout: %w", err)
	}
	return id, nil
}

// LinkSubject associates a subject with a workout.
func (db *DB) LinkSubject(ctx context.Context, workoutID, subjectID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_subjects (workout_id, subject_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		workoutID, subjectID)
	if err != nil {
		return fmt.Errorf("linking subject: %w", err)
	}
	return nil
}

// DeleteWorkout removes a workout and, via cascade, its exercises, sets
// and subject links.
func (db *DB) DeleteWorkout(ctx context.Context, workoutID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, workoutID)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	return nil
}

// MarkComplete sets the completion flag, notes and date on a workout.
// Only the explicit save path calls this; reconciliation pushes never do.
func (db *DB) MarkComplete(ctx context.Context, workoutID uuid.UUID, notes string, date time.Time) error {
	var notesVal *string
	if notes != "" {
		notesVal = &notes
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workouts SET is_completed = true, notes = $2, workout_date = $3, updated_at = now()
		 WHERE id = $1`,
		workoutID, notesVal, date.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("marking workout complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// WorkoutMeta loads the state the abandonment-cleanup predicate needs.
func (db *DB) WorkoutMeta(ctx context.Context, workoutID uuid.UUID) (models.WorkoutMeta, error) {
	var meta models.WorkoutMeta
	err := db.Pool.QueryRow(ctx,
		`SELECT w.id, w.workout_date, w.is_completed, w.created_at,
		        (SELECT count(*) FROM workout_exercises we WHERE we.workout_id = w.id)
		 FROM workouts w WHERE w.id = $1`,
		workoutID).Scan(&meta.ID, &meta.WorkoutDate, &meta.IsCompleted, &meta.CreatedAt, &meta.ExerciseCount)
	if err == pgx.ErrNoRows {
		return models.WorkoutMeta{}, ErrWorkoutNotFound
	}
	if err != nil {
		return models.WorkoutMeta{}, fmt.Errorf("loading workout meta: %w", err)
	}
	return meta, nil
}

// DeleteExercise removes one exercise (and its sets, via cascade) from a
// workout by catalog reference.
func (db *DB) DeleteExercise(ctx context.Context, workoutID uuid.UUID, exerciseRef string) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_exercises WHERE workout_id = $1 AND exercise_id = $2`,
		workoutID, exerciseRef)
	if err != nil {
		return fmt.Errorf("deleting exercise: %w", err)
	}
	return nil
}

// ReplaceExercises replaces all exercise and set rows of a workout with
// the given list, in one transaction. Set numbers are re-derived from
// position at write time regardless of what the entries carry. The
// operation is idempotent: pushing the same list twice converges on the
// same rows.
func (db *DB) ReplaceExercises(ctx context.Context, workoutID, subjectID uuid.UUID, pairMember *string, exercises []models.ExerciseEntry) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning replace: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM exercise_sets WHERE workout_exercise_id IN
		 (SELECT id FROM workout_exercises WHERE workout_id = $1)`,
		workoutID)
	if err != nil {
		return fmt.Errorf("clearing sets: %w", err)
	}
	_, err = tx.Exec(ctx, `DELETE FROM workout_exercises WHERE workout_id = $1`, workoutID)
	if err != nil {
		return fmt.Errorf("clearing exercises: %w", err)
	}

	for i, ex := range exercises {
		exRowID := uuid.New()
		_, err = tx.Exec(ctx,
			`INSERT INTO workout_exercises (id, workout_id, subject_id, exercise_id, order_index, pair_member)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			exRowID, workoutID, subjectID, ex.Exercise.ID, i, pairMember)
		if err != nil {
			return fmt.Errorf("inserting exercise %s: %w", ex.Exercise.ID, err)
		}
		if err := insertSets(ctx, tx, exRowID, ex.Sets); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `UPDATE workouts SET updated_at = now() WHERE id = $1`, workoutID)
	if err != nil {
		return fmt.Errorf("touching workout: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing replace: %w", err)
	}
	return nil
}

func insertSets(ctx context.Context, tx pgx.Tx, workoutExerciseID uuid.UUID, sets []models.SetEntry) error {
	if len(sets) == 0 {
		return nil
	}

	const cols = 17
	query := `INSERT INTO exercise_sets (workout_exercise_id, set_number, weight, reps, rpe, set_type, failure,
	 equipment_id, superset_exercise_id, superset_weight, superset_reps, superset_rpe, superset_equipment_id,
	 superset_dropset_weight, superset_dropset_reps, dropset_weight, dropset_reps) VALUES `
	args := make([]any, 0, len(sets)*cols)
	valueStrings := make([]string, 0, len(sets))

	for i, set := range sets {
		row := flattenSet(workoutExerciseID, i+1, set)
		base := i * cols
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		args = append(args,
			row.WorkoutExerciseID, row.SetNumber, row.Weight, row.Reps, row.RPE, row.SetType, row.Failure,
			row.EquipmentID, row.SupersetExerciseID, row.SupersetWeight, row.SupersetReps, row.SupersetRPE,
			row.SupersetEquipmentID, row.SupersetDropWeight, row.SupersetDropReps,
			row.DropsetWeight, row.DropsetReps)
	}

	if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
		return fmt.Errorf("inserting sets: %w", err)
	}
	return nil
}

// QueryWorkouts retrieves completed workouts for a subject in a date
// range, newest first.
func (db *DB) QueryWorkouts(ctx context.Context, subjectID uuid.UUID, start, end time.Time) ([]models.WorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT w.id, w.trainer_id, w.workout_type, w.notes, w.workout_date,
		        w.is_completed, w.is_self_logged, w.created_at, w.updated_at
		 FROM workouts w
		 JOIN workout_subjects ws ON ws.workout_id = w.id
		 WHERE ws.subject_id = $1 AND w.workout_date >= $2 AND w.workout_date < $3
		 ORDER BY w.workout_date DESC, w.created_at DESC`,
		subjectID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var out []models.WorkoutRow
	for rows.Next() {
		var w models.WorkoutRow
		if err := rows.Scan(&w.ID, &w.TrainerID, &w.WorkoutType, &w.Notes, &w.WorkoutDate,
			&w.IsCompleted, &w.SelfLogged, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetWorkout retrieves a single workout with its exercises and sets.
func (db *DB) GetWorkout(ctx context.Context, workoutID uuid.UUID) (*models.WorkoutDetail, error) {
	var detail models.WorkoutDetail
	err := db.Pool.QueryRow(ctx,
		`SELECT id, trainer_id, workout_type, notes, workout_date, is_completed, is_self_logged, created_at, updated_at
		 FROM workouts WHERE id = $1`,
		workoutID).Scan(&detail.ID, &detail.TrainerID, &detail.WorkoutType, &detail.Notes,
		&detail.WorkoutDate, &detail.IsCompleted, &detail.SelfLogged, &detail.CreatedAt, &detail.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading workout: %w", err)
	}

	exRows, err := db.Pool.Query(ctx,
		`SELECT id, exercise_id, order_index, pair_member
		 FROM workout_exercises WHERE workout_id = $1 ORDER BY order_index`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("loading exercises: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var ex models.WorkoutExerciseDetail
		if err := exRows.Scan(&ex.ID, &ex.ExerciseID, &ex.OrderIndex, &ex.PairMember); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		detail.Exercises = append(detail.Exercises, ex)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	for i := range detail.Exercises {
		sets, err := db.querySets(ctx, detail.Exercises[i].ID)
		if err != nil {
			return nil, err
		}
		detail.Exercises[i].Sets = sets
	}
	return &detail, nil
}

func (db *DB) querySets(ctx context.Context, workoutExerciseID uuid.UUID) ([]models.ExerciseSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT workout_exercise_id, set_number, weight, reps, rpe, set_type, failure,
		        equipment_id, superset_exercise_id, superset_weight, superset_reps, superset_rpe,
		        superset_equipment_id, superset_dropset_weight, superset_dropset_reps,
		        dropset_weight, dropset_reps
		 FROM exercise_sets WHERE workout_exercise_id = $1 ORDER BY set_number`,
		workoutExerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var out []models.ExerciseSetRow
	for rows.Next() {
		var s models.ExerciseSetRow
		if err := rows.Scan(&s.WorkoutExerciseID, &s.SetNumber, &s.Weight, &s.Reps, &s.RPE, &s.SetType,
			&s.Failure, &s.EquipmentID, &s.SupersetExerciseID, &s.SupersetWeight, &s.SupersetReps,
			&s.SupersetRPE, &s.SupersetEquipmentID, &s.SupersetDropWeight, &s.SupersetDropReps,
			&s.DropsetWeight, &s.DropsetReps); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertNotification records a trainer notification, e.g. after a
// self-logged workout is saved.
func (db *DB) InsertNotification(ctx context.Context, trainerID, subjectID uuid.UUID, kind, title, message string) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO trainer_notifications (trainer_id, subject_id, notification_type, title, message, is_read)
		 VALUES ($1, $2, $3, $4, $5, false)`,
		trainerID, subjectID, kind, title, message)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}
