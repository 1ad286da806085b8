package session

import (
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// UpdateSet applies a single-field merge to one set. Field names match
// the snapshot's JSON names, which is also what the HTTP surface
// receives from the editor. An RPE outside 1–10 clears the field rather
// than erroring, mirroring how unattainable values are treated at save
// time.
func UpdateSet(s models.Session, exerciseIndex, setIndex int, field string, value any) (models.Session, error) {
	if err := checkSetIndex(s, exerciseIndex, setIndex); err != nil {
		return s, err
	}
	out := Clone(s)
	set := &out.Exercises[exerciseIndex].Sets[setIndex]

	switch field {
	case "weight":
		f, err := asFloat(value)
		if err != nil {
			return s, fmt.Errorf("field %s: %w", field, err)
		}
		set.Weight = f
	case "reps":
		n, err := asInt(value)
		if err != nil {
			return s, fmt.Errorf("field %s: %w", field, err)
		}
		set.Reps = n
	case "rpe":
		set.RPE = asRPE(value)
	case "failure":
		b, ok := value.(bool)
		if !ok {
			return s, fmt.Errorf("field failure: expected bool, got %T", value)
		}
		set.Failure = b
	case "set_type":
		t, ok := value.(string)
		if !ok {
			return s, fmt.Errorf("field set_type: expected string, got %T", value)
		}
		switch models.SetType(t) {
		case models.SetRegular, models.SetSuperset, models.SetDropset:
			set.Type = models.SetType(t)
		default:
			return s, fmt.Errorf("unknown set type %q", t)
		}
	case "equipment":
		ref, err := asEquipment(value)
		if err != nil {
			return s, err
		}
		set.Equipment = ref
	case "superset_exercise":
		ref, err := asExerciseRef(value)
		if err != nil {
			return s, err
		}
		set.Type = models.SetSuperset
		ensureSuperset(set).Exercise = ref
	case "superset_weight":
		f, err := asFloat(value)
		if err != nil {
			return s, fmt.Errorf("field %s: %w", field, err)
		}
		ensureSuperset(set).Weight = f
	case "superset_reps":
		n, err := asInt(value)
		if err != nil {
			return s, fmt.Errorf("field %s: %w", field, err)
		}
		ensureSuperset(set).Reps = n
	case "superset_rpe":
		ensureSuperset(set).RPE = asRPE(value)
	case "superset_equipment":
		ref, err := asEquipment(value)
		if err != nil {
			return s, err
		}
		ensureSuperset(set).Equipment = ref
	case "superset_dropset_weight":
		f, err := asFloat(value)
		if err != nil {
			return s, fmt.Errorf("field %s: %w", field, err)
		}
		ensureSupersetDropset(set).Weight = f
	case "superset_dropset_reps":
		n, err := asInt(value)
		if err != nil {
			return s, fmt.Errorf("field %s: %w", field, err)
		}
		ensureSupersetDropset(set).Reps = n
	case "dropset_weight":
		f, err := asFloat(value)
		if err != nil {
			return s, fmt.Errorf("field %s: %w", field, err)
		}
		ensureDropset(set).Weight = f
	case "dropset_reps":
		n, err := asInt(value)
		if err != nil {
			return s, fmt.Errorf("field %s: %w", field, err)
		}
		ensureDropset(set).Reps = n
	default:
		return s, fmt.Errorf("unknown set field %q", field)
	}
	return out, nil
}

func ensureSuperset(set *models.SetEntry) *models.SupersetEntry {
	if set.Superset == nil {
		set.Superset = &models.SupersetEntry{}
	}
	return set.Superset
}

func ensureSupersetDropset(set *models.SetEntry) *models.DropsetEntry {
	ss := ensureSuperset(set)
	if ss.Dropset == nil {
		ss.Dropset = &models.DropsetEntry{}
	}
	return ss.Dropset
}

func ensureDropset(set *models.SetEntry) *models.DropsetEntry {
	if set.Dropset == nil {
		set.Dropset = &models.DropsetEntry{}
	}
	return set.Dropset
}

// asFloat accepts the numeric types JSON decoding can produce.
func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func asInt(v any) (int, error) {
	f, err := asFloat(v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// asRPE coerces to a valid 1–10 pointer or nil.
func asRPE(v any) *int {
	n, err := asInt(v)
	if err != nil || n < 1 || n > 10 {
		return nil
	}
	return &n
}

func asEquipment(v any) (*models.EquipmentRef, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected equipment object, got %T", v)
	}
	ref := &models.EquipmentRef{}
	if id, ok := m["id"].(string); ok {
		ref.ID = id
	}
	if name, ok := m["name"].(string); ok {
		ref.Name = name
	}
	if emoji, ok := m["emoji"].(string); ok {
		ref.Emoji = emoji
	}
	if ref.ID == "" {
		return nil, nil
	}
	return ref, nil
}

func asExerciseRef(v any) (models.ExerciseRef, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return models.ExerciseRef{}, fmt.Errorf("expected exercise object, got %T", v)
	}
	ref := models.ExerciseRef{}
	if id, ok := m["id"].(string); ok {
		ref.ID = id
	}
	if name, ok := m["name"].(string); ok {
		ref.Name = name
	}
	if ref.ID == "" {
		return models.ExerciseRef{}, fmt.Errorf("exercise reference missing id")
	}
	return ref, nil
}
