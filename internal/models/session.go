package models

import (
	"time"
)

// SetType selects which semantics apply to a set. Exactly one of the
// three applies; the nested Superset/Dropset entries are meaningful only
// when the type selects them.
type SetType string

const (
	SetRegular  SetType = "regular"
	SetSuperset SetType = "superset"
	SetDropset  SetType = "dropset"
)

// ExerciseRef is an opaque reference into the exercise catalog plus the
// display name the UI needs. The engine never interprets it.
type ExerciseRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EquipmentRef is an opaque reference into the equipment catalog.
type EquipmentRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Emoji string `json:"emoji,omitempty"`
}

// DropsetEntry is the drop-set continuation of a set: reduced weight,
// reps to failure.
type DropsetEntry struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// SupersetEntry is the paired exercise performed back to back with the
// main set, optionally with its own drop-set tail.
type SupersetEntry struct {
	Exercise  ExerciseRef   `json:"exercise"`
	Weight    float64       `json:"weight"`
	Reps      int           `json:"reps"`
	RPE       *int          `json:"rpe,omitempty"`
	Equipment *EquipmentRef `json:"equipment,omitempty"`
	Dropset   *DropsetEntry `json:"dropset,omitempty"`
}

// SetEntry is one logged set. LocalID is ephemeral: stable for the
// editing lifetime, never sent to the remote store. SetNumber is always
// the 1-based position in the exercise's sequence and is recomputed on
// every structural change.
type SetEntry struct {
	LocalID   string         `json:"local_id"`
	SetNumber int            `json:"set_number"`
	Weight    float64        `json:"weight"`
	Reps      int            `json:"reps"`
	RPE       *int           `json:"rpe,omitempty"`
	Type      SetType        `json:"set_type"`
	Failure   bool           `json:"failure"`
	Equipment *EquipmentRef  `json:"equipment,omitempty"`
	Superset  *SupersetEntry `json:"superset,omitempty"`
	Dropset   *DropsetEntry  `json:"dropset,omitempty"`
}

// ExerciseEntry is one exercise in the session with its ordered sets.
type ExerciseEntry struct {
	LocalID  string      `json:"local_id"`
	Exercise ExerciseRef `json:"exercise"`
	Sets     []SetEntry  `json:"sets"`
}

// Session is the root aggregate held in memory while editing. It has no
// identity of its own until a remote workout record is materialized.
// Minimized and Collapsed are UI-only state keyed by local ids.
type Session struct {
	Exercises []ExerciseEntry `json:"exercises"`
	Notes     string          `json:"notes"`
	Date      time.Time       `json:"date"`
	Minimized []string        `json:"minimized,omitempty"`
	Collapsed []string        `json:"collapsed,omitempty"`
}

// DraftSnapshot is the serialized form written to the local snapshot
// store. Structural equality of its serialization against the last
// written baseline is how dirtiness is computed.
type DraftSnapshot struct {
	Exercises []ExerciseEntry `json:"exercises"`
	Notes     string          `json:"notes"`
	Date      time.Time       `json:"date"`
	StartTime time.Time       `json:"session_start_time"`
}

// RecordKind names one of the tracked personal-best dimensions.
type RecordKind string

const (
	RecordMaxWeight RecordKind = "max_weight"
	RecordMaxReps   RecordKind = "max_reps"
	RecordMaxVolume RecordKind = "max_volume"
)

// RecordDelta reports a personal best broken during a save, for
// user-facing display.
type RecordDelta struct {
	Exercise ExerciseRef `json:"exercise"`
	Kind     RecordKind  `json:"kind"`
	OldValue float64     `json:"old_value"`
	NewValue float64     `json:"new_value"`
}
