package storage

import (
	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// flattenSet converts the in-memory set tree to the flat row shape of
// the exercise_sets table. The set number comes from the position the
// caller supplies, never from the entry itself, and local ids are
// dropped entirely. RPE values outside 1–10 are stored as null.
func flattenSet(workoutExerciseID uuid.UUID, number int, set models.SetEntry) models.ExerciseSetRow {
	row := models.ExerciseSetRow{
		WorkoutExerciseID: workoutExerciseID,
		SetNumber:         number,
		Weight:            set.Weight,
		Reps:              set.Reps,
		RPE:               validRPE(set.RPE),
		SetType:           string(set.Type),
		Failure:           set.Failure,
	}
	if set.Equipment != nil && set.Equipment.ID != "" {
		row.EquipmentID = &set.Equipment.ID
	}
	if ss := set.Superset; ss != nil {
		if ss.Exercise.ID != "" {
			row.SupersetExerciseID = &ss.Exercise.ID
		}
		row.SupersetWeight = nonZeroFloat(ss.Weight)
		row.SupersetReps = nonZeroInt(ss.Reps)
		row.SupersetRPE = validRPE(ss.RPE)
		if ss.Equipment != nil && ss.Equipment.ID != "" {
			row.SupersetEquipmentID = &ss.Equipment.ID
		}
		if d := ss.Dropset; d != nil {
			row.SupersetDropWeight = nonZeroFloat(d.Weight)
			row.SupersetDropReps = nonZeroInt(d.Reps)
		}
	}
	if d := set.Dropset; d != nil {
		row.DropsetWeight = nonZeroFloat(d.Weight)
		row.DropsetReps = nonZeroInt(d.Reps)
	}
	return row
}

func validRPE(p *int) *int {
	if p == nil || *p < 1 || *p > 10 {
		return nil
	}
	v := *p
	return &v
}

func nonZeroFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func nonZeroInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
