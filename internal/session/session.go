// Package session holds the pure in-memory session model: an ordered
// tree of exercises and sets with mutation operations and derived
// aggregates. Every operation returns a new session value and performs
// no I/O, so the model is the single source of truth for display and is
// trivially unit-testable.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// New returns an empty session for the given calendar date.
func New(date time.Time) models.Session {
	return models.Session{Date: date}
}

func newLocalID() string {
	return uuid.NewString()
}

func emptySet(number int) models.SetEntry {
	return models.SetEntry{
		LocalID:   newLocalID(),
		SetNumber: number,
		Type:      models.SetRegular,
	}
}

// setFromPrevious copies all fields of the previous set into a new one,
// nested superset/dropset data included. Inheriting the pattern of the
// prior set is a deliberate convenience for the common
// "same weight, same reps, next set" flow.
func setFromPrevious(number int, prev models.SetEntry) models.SetEntry {
	s := cloneSet(prev)
	s.LocalID = newLocalID()
	s.SetNumber = number
	return s
}

func cloneSet(s models.SetEntry) models.SetEntry {
	out := s
	out.RPE = cloneIntPtr(s.RPE)
	out.Equipment = cloneEquipment(s.Equipment)
	out.Dropset = cloneDropset(s.Dropset)
	if s.Superset != nil {
		ss := *s.Superset
		ss.RPE = cloneIntPtr(s.Superset.RPE)
		ss.Equipment = cloneEquipment(s.Superset.Equipment)
		ss.Dropset = cloneDropset(s.Superset.Dropset)
		out.Superset = &ss
	}
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneEquipment(e *models.EquipmentRef) *models.EquipmentRef {
	if e == nil {
		return nil
	}
	v := *e
	return &v
}

func cloneDropset(d *models.DropsetEntry) *models.DropsetEntry {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneExercise(e models.ExerciseEntry) models.ExerciseEntry {
	out := e
	out.Sets = make([]models.SetEntry, len(e.Sets))
	for i, s := range e.Sets {
		out.Sets[i] = cloneSet(s)
	}
	return out
}

// Clone deep-copies a session so callers can mutate the result without
// aliasing the original.
func Clone(s models.Session) models.Session {
	out := s
	out.Exercises = make([]models.ExerciseEntry, len(s.Exercises))
	for i, e := range s.Exercises {
		out.Exercises[i] = cloneExercise(e)
	}
	out.Minimized = append([]string(nil), s.Minimized...)
	out.Collapsed = append([]string(nil), s.Collapsed...)
	return out
}

// AddExercise appends a new exercise with one empty set and minimizes
// the previously-last exercise so at most the newcomer stays expanded.
func AddExercise(s models.Session, ref models.ExerciseRef) models.Session {
	out := Clone(s)
	if n := len(out.Exercises); n > 0 {
		last := out.Exercises[n-1].LocalID
		if !contains(out.Minimized, last) {
			out.Minimized = append(out.Minimized, last)
		}
	}
	out.Exercises = append(out.Exercises, models.ExerciseEntry{
		LocalID:  newLocalID(),
		Exercise: ref,
		Sets:     []models.SetEntry{emptySet(1)},
	})
	return out
}

// RemoveExercise removes the exercise at the given position.
func RemoveExercise(s models.Session, index int) (models.Session, error) {
	if index < 0 || index >= len(s.Exercises) {
		return s, fmt.Errorf("exercise index %d out of range", index)
	}
	out := Clone(s)
	out.Exercises = append(out.Exercises[:index], out.Exercises[index+1:]...)
	return out, nil
}

// AddSet appends a set to an exercise. When the prior set has any
// non-zero weight or reps the new set inherits all of its fields as a
// starting point; otherwise it starts empty. Existing sets collapse so
// the new one is the open entry row.
func AddSet(s models.Session, exerciseIndex int) (models.Session, error) {
	if exerciseIndex < 0 || exerciseIndex >= len(s.Exercises) {
		return s, fmt.Errorf("exercise index %d out of range", exerciseIndex)
	}
	out := Clone(s)
	ex := &out.Exercises[exerciseIndex]
	for _, set := range ex.Sets {
		if !contains(out.Collapsed, set.LocalID) {
			out.Collapsed = append(out.Collapsed, set.LocalID)
		}
	}
	number := len(ex.Sets) + 1
	if n := len(ex.Sets); n > 0 && (ex.Sets[n-1].Weight > 0 || ex.Sets[n-1].Reps > 0) {
		ex.Sets = append(ex.Sets, setFromPrevious(number, ex.Sets[n-1]))
	} else {
		ex.Sets = append(ex.Sets, emptySet(number))
	}
	return out, nil
}

// RemoveSet removes a set and renumbers the remainder sequentially.
func RemoveSet(s models.Session, exerciseIndex, setIndex int) (models.Session, error) {
	if err := checkSetIndex(s, exerciseIndex, setIndex); err != nil {
		return s, err
	}
	out := Clone(s)
	ex := &out.Exercises[exerciseIndex]
	ex.Sets = append(ex.Sets[:setIndex], ex.Sets[setIndex+1:]...)
	renumber(ex)
	return out, nil
}

// DuplicateSet appends a copy of the given set at the end of the
// exercise with the next sequential number.
func DuplicateSet(s models.Session, exerciseIndex, setIndex int) (models.Session, error) {
	if err := checkSetIndex(s, exerciseIndex, setIndex); err != nil {
		return s, err
	}
	out := Clone(s)
	ex := &out.Exercises[exerciseIndex]
	dup := cloneSet(ex.Sets[setIndex])
	dup.LocalID = newLocalID()
	dup.SetNumber = len(ex.Sets) + 1
	ex.Sets = append(ex.Sets, dup)
	return out, nil
}

func renumber(ex *models.ExerciseEntry) {
	for i := range ex.Sets {
		ex.Sets[i].SetNumber = i + 1
	}
}

func checkSetIndex(s models.Session, exerciseIndex, setIndex int) error {
	if exerciseIndex < 0 || exerciseIndex >= len(s.Exercises) {
		return fmt.Errorf("exercise index %d out of range", exerciseIndex)
	}
	if setIndex < 0 || setIndex >= len(s.Exercises[exerciseIndex].Sets) {
		return fmt.Errorf("set index %d out of range", setIndex)
	}
	return nil
}

// SetNotes replaces the free-text note.
func SetNotes(s models.Session, notes string) models.Session {
	out := Clone(s)
	out.Notes = notes
	return out
}

// SetDate replaces the session date.
func SetDate(s models.Session, date time.Time) models.Session {
	out := Clone(s)
	out.Date = date
	return out
}

// ToggleMinimize flips the minimized flag for an exercise.
func ToggleMinimize(s models.Session, exerciseLocalID string) models.Session {
	out := Clone(s)
	if contains(out.Minimized, exerciseLocalID) {
		out.Minimized = remove(out.Minimized, exerciseLocalID)
	} else {
		out.Minimized = append(out.Minimized, exerciseLocalID)
	}
	return out
}

// CompleteExercise minimizes an exercise if it is not already.
func CompleteExercise(s models.Session, exerciseLocalID string) models.Session {
	if contains(s.Minimized, exerciseLocalID) {
		return s
	}
	out := Clone(s)
	out.Minimized = append(out.Minimized, exerciseLocalID)
	return out
}

// ToggleCollapseSet opens a collapsed set (collapsing its siblings in
// the same exercise) or collapses an open one.
func ToggleCollapseSet(s models.Session, setLocalID string) models.Session {
	out := Clone(s)
	if !contains(out.Collapsed, setLocalID) {
		out.Collapsed = append(out.Collapsed, setLocalID)
		return out
	}
	out.Collapsed = remove(out.Collapsed, setLocalID)
	for _, ex := range out.Exercises {
		if !exerciseHasSet(ex, setLocalID) {
			continue
		}
		for _, set := range ex.Sets {
			if set.LocalID != setLocalID && !contains(out.Collapsed, set.LocalID) {
				out.Collapsed = append(out.Collapsed, set.LocalID)
			}
		}
		break
	}
	return out
}

// ExpandAllSets un-collapses every set of one exercise.
func ExpandAllSets(s models.Session, exerciseIndex int) (models.Session, error) {
	if exerciseIndex < 0 || exerciseIndex >= len(s.Exercises) {
		return s, fmt.Errorf("exercise index %d out of range", exerciseIndex)
	}
	out := Clone(s)
	for _, set := range out.Exercises[exerciseIndex].Sets {
		out.Collapsed = remove(out.Collapsed, set.LocalID)
	}
	return out, nil
}

// CompleteSetAndMoveNext collapses the given set and opens the next one
// in the same exercise, if any.
func CompleteSetAndMoveNext(s models.Session, exerciseIndex, setIndex int) (models.Session, error) {
	if err := checkSetIndex(s, exerciseIndex, setIndex); err != nil {
		return s, err
	}
	out := Clone(s)
	ex := out.Exercises[exerciseIndex]
	cur := ex.Sets[setIndex].LocalID
	if !contains(out.Collapsed, cur) {
		out.Collapsed = append(out.Collapsed, cur)
	}
	if setIndex+1 < len(ex.Sets) {
		out.Collapsed = remove(out.Collapsed, ex.Sets[setIndex+1].LocalID)
	}
	return out, nil
}

func exerciseHasSet(ex models.ExerciseEntry, setLocalID string) bool {
	for _, set := range ex.Sets {
		if set.LocalID == setLocalID {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
