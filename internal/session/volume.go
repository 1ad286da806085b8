package session

import (
	"github.com/claude/liftlog/internal/models"
)

// setVolume sums the weight×reps contributions of a set: the main lift
// plus superset, dropset and superset-dropset continuations when both
// weight and reps are present.
func setVolume(set models.SetEntry) float64 {
	v := set.Weight * float64(set.Reps)
	if ss := set.Superset; ss != nil {
		if ss.Weight > 0 && ss.Reps > 0 {
			v += ss.Weight * float64(ss.Reps)
		}
		if d := ss.Dropset; d != nil && d.Weight > 0 && d.Reps > 0 {
			v += d.Weight * float64(d.Reps)
		}
	}
	if d := set.Dropset; d != nil && d.Weight > 0 && d.Reps > 0 {
		v += d.Weight * float64(d.Reps)
	}
	return v
}

// ExerciseVolume is the total volume of one exercise.
func ExerciseVolume(ex models.ExerciseEntry) float64 {
	var total float64
	for _, set := range ex.Sets {
		total += setVolume(set)
	}
	return total
}

// TotalVolume sums volume over all exercises in the session.
func TotalVolume(s models.Session) float64 {
	var total float64
	for _, ex := range s.Exercises {
		total += ExerciseVolume(ex)
	}
	return total
}

// ExerciseSummary is the per-exercise header line: count of sets, the
// heaviest main-lift weight, and main-lift volume (continuations
// excluded, matching the display).
type ExerciseSummary struct {
	TotalSets int     `json:"total_sets"`
	MaxWeight float64 `json:"max_weight"`
	Volume    float64 `json:"volume"`
}

// Summary computes the header aggregates for one exercise.
func Summary(ex models.ExerciseEntry) ExerciseSummary {
	sum := ExerciseSummary{TotalSets: len(ex.Sets)}
	for _, set := range ex.Sets {
		if set.Weight > sum.MaxWeight {
			sum.MaxWeight = set.Weight
		}
		sum.Volume += set.Weight * float64(set.Reps)
	}
	return sum
}

// DuplicateRefs returns the exercise-reference ids that appear more than
// once in the session, in first-seen order.
func DuplicateRefs(s models.Session) []string {
	seen := make(map[string]int, len(s.Exercises))
	var dups []string
	for _, ex := range s.Exercises {
		seen[ex.Exercise.ID]++
		if seen[ex.Exercise.ID] == 2 {
			dups = append(dups, ex.Exercise.ID)
		}
	}
	return dups
}

// StripDuplicates removes every exercise entry after the first for each
// duplicated reference. Used by the reconciler's auto-repair: keeping
// the earlier entry preserves the sets the user logged first.
func StripDuplicates(s models.Session) models.Session {
	out := Clone(s)
	seen := make(map[string]bool, len(out.Exercises))
	kept := out.Exercises[:0]
	for _, ex := range out.Exercises {
		if seen[ex.Exercise.ID] {
			continue
		}
		seen[ex.Exercise.ID] = true
		kept = append(kept, ex)
	}
	out.Exercises = kept
	return out
}
