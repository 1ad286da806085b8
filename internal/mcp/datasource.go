package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. *storage.DB
// satisfies this interface.
type DataSource interface {
	QueryWorkouts(ctx context.Context, subjectID uuid.UUID, start, end time.Time) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID) (*models.WorkoutDetail, error)
	SubjectRecords(ctx context.Context, subjectID uuid.UUID) ([]models.PersonalRecordRow, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
