package mcp

import (
	"testing"

	"github.com/claude/liftlog/internal/models"
)

// TestDefaultTimeRange verifies time range defaults (last 30 days) and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to last 30 days
	start, end, err := defaultTimeRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 719 || diff.Hours() > 721 { // ~720 hours = 30 days
		t.Errorf("default range = %.0f hours, want ~720", diff.Hours())
	}

	// Explicit dates
	start, end, err = defaultTimeRange("2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2026 || start.Month() != 8 || start.Day() != 1 {
		t.Errorf("start = %v, want 2026-08-01", start)
	}
	if end.Year() != 2026 || end.Month() != 8 || end.Day() != 31 {
		t.Errorf("end = %v, want 2026-08-31", end)
	}

	// RFC3339
	start, _, err = defaultTimeRange("2026-06-15T10:30:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	// Invalid
	_, _, err = defaultTimeRange("not-a-date", "")
	if err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestRowVolume verifies volume accounting over a persisted set row,
// including superset and dropset contributions.
func TestRowVolume(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	n := func(v int) *int { return &v }

	plain := models.ExerciseSetRow{Weight: 100, Reps: 5}
	if got := rowVolume(plain); got != 500 {
		t.Errorf("plain volume = %v, want 500", got)
	}

	loaded := models.ExerciseSetRow{
		Weight: 100, Reps: 5,
		SupersetWeight:     f(40), SupersetReps: n(10),
		SupersetDropWeight: f(20), SupersetDropReps: n(8),
		DropsetWeight:      f(60), DropsetReps: n(6),
	}
	// 500 + 400 + 160 + 360
	if got := rowVolume(loaded); got != 1420 {
		t.Errorf("loaded volume = %v, want 1420", got)
	}

	// A dropset without reps contributes nothing.
	partial := models.ExerciseSetRow{Weight: 100, Reps: 5, DropsetWeight: f(60)}
	if got := rowVolume(partial); got != 500 {
		t.Errorf("partial volume = %v, want 500", got)
	}
}
