package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// BestRecords loads the stored personal bests for one subject/exercise,
// scoped by pair member. Returns at most one row per record kind.
func (db *DB) BestRecords(ctx context.Context, subjectID uuid.UUID, exerciseRef string, pairMember *string) ([]models.PersonalRecordRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT subject_id, exercise_id, record_type, pair_member, weight, reps, volume, workout_id, achieved_at
		 FROM personal_records
		 WHERE subject_id = $1 AND exercise_id = $2 AND pair_member IS NOT DISTINCT FROM $3`,
		subjectID, exerciseRef, pairMember)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()

	var out []models.PersonalRecordRow
	for rows.Next() {
		var r models.PersonalRecordRow
		if err := rows.Scan(&r.SubjectID, &r.ExerciseID, &r.Kind, &r.PairMember,
			&r.Weight, &r.Reps, &r.Volume, &r.WorkoutID, &r.AchievedAt); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertBestRecord stores a new best, keyed by
// (subject, exercise, kind, pair member).
func (db *DB) UpsertBestRecord(ctx context.Context, rec models.PersonalRecordRow) error {
	if rec.AchievedAt.IsZero() {
		rec.AchievedAt = time.Now()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO personal_records
		   (subject_id, exercise_id, record_type, pair_member, weight, reps, volume, workout_id, achieved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (subject_id, exercise_id, record_type, pair_member_key) DO UPDATE SET
		   weight = EXCLUDED.weight,
		   reps = EXCLUDED.reps,
		   volume = EXCLUDED.volume,
		   workout_id = EXCLUDED.workout_id,
		   achieved_at = EXCLUDED.achieved_at`,
		rec.SubjectID, rec.ExerciseID, rec.Kind, rec.PairMember,
		rec.Weight, rec.Reps, rec.Volume, rec.WorkoutID, rec.AchievedAt)
	if err != nil {
		return fmt.Errorf("upserting personal record: %w", err)
	}
	return nil
}

// SubjectRecords lists all stored bests for a subject, newest first.
func (db *DB) SubjectRecords(ctx context.Context, subjectID uuid.UUID) ([]models.PersonalRecordRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT subject_id, exercise_id, record_type, pair_member, weight, reps, volume, workout_id, achieved_at
		 FROM personal_records WHERE subject_id = $1 ORDER BY achieved_at DESC`,
		subjectID)
	if err != nil {
		return nil, fmt.Errorf("querying subject records: %w", err)
	}
	defer rows.Close()

	var out []models.PersonalRecordRow
	for rows.Next() {
		var r models.PersonalRecordRow
		if err := rows.Scan(&r.SubjectID, &r.ExerciseID, &r.Kind, &r.PairMember,
			&r.Weight, &r.Reps, &r.Volume, &r.WorkoutID, &r.AchievedAt); err != nil {
			return nil, fmt.Errorf("scanning subject record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
