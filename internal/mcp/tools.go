package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/liftlog/internal/models"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// rowVolume is weight times reps for the main lift plus the superset
// and dropset contributions a persisted set row carries.
func rowVolume(row models.ExerciseSetRow) float64 {
	v := row.Weight * float64(row.Reps)
	if row.SupersetWeight != nil && row.SupersetReps != nil {
		v += *row.SupersetWeight * float64(*row.SupersetReps)
	}
	if row.SupersetDropWeight != nil && row.SupersetDropReps != nil {
		v += *row.SupersetDropWeight * float64(*row.SupersetDropReps)
	}
	if row.DropsetWeight != nil && row.DropsetReps != nil {
		v += *row.DropsetWeight * float64(*row.DropsetReps)
	}
	return v
}

// --- Tool definitions ---

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Query saved workouts for a trainee. Returns workout summaries with date, type, notes, and completion status."),
	mcp.WithString("subject_id", mcp.Required(), mcp.Description("Trainee UUID")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetWorkoutSets = mcp.NewTool("get_workout_sets",
	mcp.WithDescription("Retrieve one saved workout with every exercise and set, including weight, reps, RPE, supersets, and dropsets."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout UUID")),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("List a trainee's personal records (max weight, max reps, max single-set volume) per exercise."),
	mcp.WithString("subject_id", mcp.Required(), mcp.Description("Trainee UUID")),
)

var toolGetTrainingVolume = mcp.NewTool("get_training_volume",
	mcp.WithDescription("Total training volume (weight x reps, including supersets and dropsets) per workout over a time range."),
	mcp.WithString("subject_id", mcp.Required(), mcp.Description("Trainee UUID")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

// --- Tool handlers ---

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjectStr, err := req.RequireString("subject_id")
	if err != nil {
		return mcp.NewToolResultError("subject_id parameter is required"), nil
	}
	subjectID, err := uuid.Parse(subjectStr)
	if err != nil {
		return mcp.NewToolResultError("subject_id is not a valid UUID"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.QueryWorkouts(ctx, subjectID, start, end)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}
	workoutID, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("workout_id is not a valid UUID"), nil
	}

	detail, err := h.ds.GetWorkout(ctx, workoutID)
	if err != nil {
		h.log.Error("mcp get_workout_sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(detail)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjectStr, err := req.RequireString("subject_id")
	if err != nil {
		return mcp.NewToolResultError("subject_id parameter is required"), nil
	}
	subjectID, err := uuid.Parse(subjectStr)
	if err != nil {
		return mcp.NewToolResultError("subject_id is not a valid UUID"), nil
	}

	records, err := h.ds.SubjectRecords(ctx, subjectID)
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(records)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTrainingVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjectStr, err := req.RequireString("subject_id")
	if err != nil {
		return mcp.NewToolResultError("subject_id parameter is required"), nil
	}
	subjectID, err := uuid.Parse(subjectStr)
	if err != nil {
		return mcp.NewToolResultError("subject_id is not a valid UUID"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.QueryWorkouts(ctx, subjectID, start, end)
	if err != nil {
		h.log.Error("mcp get_training_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	type volumeEntry struct {
		WorkoutID   uuid.UUID `json:"workout_id"`
		WorkoutDate string    `json:"workout_date"`
		Volume      float64   `json:"volume"`
		SetCount    int       `json:"set_count"`
	}
	entries := make([]volumeEntry, 0, len(workouts))
	var total float64

	for _, wk := range workouts {
		detail, err := h.ds.GetWorkout(ctx, wk.ID)
		if err != nil {
			h.log.Warn("mcp get_training_volume: workout detail failed", "workout_id", wk.ID, "error", err)
			continue
		}
		entry := volumeEntry{WorkoutID: wk.ID, WorkoutDate: wk.WorkoutDate.Format("2006-01-02")}
		for _, ex := range detail.Exercises {
			for _, row := range ex.Sets {
				entry.Volume += rowVolume(row)
				entry.SetCount++
			}
		}
		total += entry.Volume
		entries = append(entries, entry)
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"total_volume": total,
		"workouts":     entries,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Resource handlers ---

func (h *handlers) recordKinds(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	catalog := []map[string]string{
		{"kind": string(models.RecordMaxWeight), "description": "Heaviest weight lifted in a single set"},
		{"kind": string(models.RecordMaxReps), "description": "Most reps performed in a single set"},
		{"kind": string(models.RecordMaxVolume), "description": "Highest weight x reps in a single set"},
	}
	data, err := json.Marshal(catalog)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
