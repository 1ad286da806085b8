package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutRow is a row of the workouts table. Identity is assigned by the
// remote store on first materialization; once IsCompleted is set the row
// is the unit of truth for the session.
type WorkoutRow struct {
	ID          uuid.UUID
	TrainerID   uuid.UUID
	WorkoutType string
	Notes       *string
	WorkoutDate time.Time
	IsCompleted bool
	SelfLogged  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkoutMeta is the subset of workout state the abandonment-cleanup
// predicate needs.
type WorkoutMeta struct {
	ID            uuid.UUID
	WorkoutDate   time.Time
	IsCompleted   bool
	CreatedAt     time.Time
	ExerciseCount int
}

// ExerciseSetRow is a row of the exercise_sets table, the flattened wire
// form of a SetEntry.
type ExerciseSetRow struct {
	WorkoutExerciseID    uuid.UUID
	SetNumber            int
	Weight               float64
	Reps                 int
	RPE                  *int
	SetType              string
	Failure              bool
	EquipmentID          *string
	SupersetExerciseID   *string
	SupersetWeight       *float64
	SupersetReps         *int
	SupersetRPE          *int
	SupersetEquipmentID  *string
	SupersetDropWeight   *float64
	SupersetDropReps     *int
	DropsetWeight        *float64
	DropsetReps          *int
}

// PersonalRecordRow is a stored best for one subject/exercise/kind,
// scoped by pair member when the subject trains as half of a pair.
type PersonalRecordRow struct {
	SubjectID  uuid.UUID
	ExerciseID string
	Kind       RecordKind
	PairMember *string
	Weight     *float64
	Reps       *int
	Volume     *float64
	WorkoutID  uuid.UUID
	AchievedAt time.Time
}

// WorkoutDetail is a saved workout with its exercises and sets, as
// returned by history reads.
type WorkoutDetail struct {
	WorkoutRow
	Exercises []WorkoutExerciseDetail
}

// WorkoutExerciseDetail is one persisted exercise row with its sets.
type WorkoutExerciseDetail struct {
	ID         uuid.UUID
	ExerciseID string
	OrderIndex int
	PairMember *string
	Sets       []ExerciseSetRow
}
