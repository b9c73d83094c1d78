// Package template edits workout templates. Each exercise holds a flat,
// ordered list of sets tagged warm-up or work; saving replaces the whole
// exercise list.
package template

import (
	"errors"
	"fmt"
	"strings"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// ErrIndex is returned when an exercise or set index is out of range.
var ErrIndex = errors.New("exercise or set index out of range")

// Limits applied by Validate.
const (
	MaxExercises       = 50
	MaxSetsPerExercise = 30
	MaxRestSeconds     = 3600
	MaxTargetIntensity = 10
)

// SetSpec describes a set to add.
type SetSpec struct {
	Kind            models.SetKind `json:"kind"`
	TargetReps      int            `json:"target_reps"`
	TargetIntensity *float64       `json:"target_intensity,omitempty"`
	RestSeconds     int            `json:"rest_seconds"`
}

func (s SetSpec) set() models.SetTemplate {
	return models.SetTemplate{
		ID:              uuid.New(),
		Kind:            s.Kind,
		TargetReps:      s.TargetReps,
		TargetIntensity: s.TargetIntensity,
		RestSeconds:     s.RestSeconds,
	}
}

// AddExercise appends an exercise and returns its index.
func AddExercise(t *models.WorkoutTemplate, name, notes string) int {
	t.Exercises = append(t.Exercises, models.Exercise{
		ID:    uuid.New(),
		Name:  name,
		Notes: notes,
		Sets:  []models.SetTemplate{},
	})
	return len(t.Exercises) - 1
}

// RemoveExercise deletes the exercise at idx.
func RemoveExercise(t *models.WorkoutTemplate, idx int) error {
	if idx < 0 || idx >= len(t.Exercises) {
		return ErrIndex
	}
	t.Exercises = append(t.Exercises[:idx], t.Exercises[idx+1:]...)
	return nil
}

// AddSet appends a set to exercise exIdx.
func AddSet(t *models.WorkoutTemplate, exIdx int, spec SetSpec) error {
	if exIdx < 0 || exIdx >= len(t.Exercises) {
		return ErrIndex
	}
	ex := &t.Exercises[exIdx]
	ex.Sets = append(ex.Sets, spec.set())
	return nil
}

// RemoveSet deletes set setIdx of exercise exIdx.
func RemoveSet(t *models.WorkoutTemplate, exIdx, setIdx int) error {
	if exIdx < 0 || exIdx >= len(t.Exercises) {
		return ErrIndex
	}
	ex := &t.Exercises[exIdx]
	if setIdx < 0 || setIdx >= len(ex.Sets) {
		return ErrIndex
	}
	ex.Sets = append(ex.Sets[:setIdx], ex.Sets[setIdx+1:]...)
	return nil
}

// QuickSets builds warmups warm-up sets followed by works work sets.
func QuickSets(warmups, works int, warmup, work SetSpec) []models.SetTemplate {
	warmup.Kind = models.SetKindWarmup
	work.Kind = models.SetKindWork
	sets := make([]models.SetTemplate, 0, max(warmups, 0)+max(works, 0))
	for range warmups {
		sets = append(sets, warmup.set())
	}
	for range works {
		sets = append(sets, work.set())
	}
	return sets
}

// AssignIDs gives new ids to the template, its exercises and sets where unset.
func AssignIDs(t *models.WorkoutTemplate) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	for i := range t.Exercises {
		ex := &t.Exercises[i]
		if ex.ID == uuid.Nil {
			ex.ID = uuid.New()
		}
		if ex.Sets == nil {
			ex.Sets = []models.SetTemplate{}
		}
		for j := range ex.Sets {
			if ex.Sets[j].ID == uuid.Nil {
				ex.Sets[j].ID = uuid.New()
			}
		}
	}
}

// Validate checks a template before it is saved.
func Validate(t *models.WorkoutTemplate) error {
	verr := &models.ValidationError{}
	if strings.TrimSpace(t.Name) == "" {
		verr.Add("name", "name is required")
	}
	if len(t.Exercises) > MaxExercises {
		verr.Add("exercises", fmt.Sprintf("at most %d exercises", MaxExercises))
	}
	for i, ex := range t.Exercises {
		prefix := fmt.Sprintf("exercises[%d]", i)
		if strings.TrimSpace(ex.Name) == "" {
			verr.Add(prefix+".name", "name is required")
		}
		if len(ex.Sets) > MaxSetsPerExercise {
			verr.Add(prefix+".sets", fmt.Sprintf("at most %d sets", MaxSetsPerExercise))
		}
		for j, s := range ex.Sets {
			sp := fmt.Sprintf("%s.sets[%d]", prefix, j)
			if !s.Kind.Valid() {
				verr.Add(sp+".kind", "must be warmup or work")
			}
			if s.TargetReps < 0 {
				verr.Add(sp+".target_reps", "must not be negative")
			}
			if s.RestSeconds < 0 || s.RestSeconds > MaxRestSeconds {
				verr.Add(sp+".rest_seconds", fmt.Sprintf("must be between 0 and %d", MaxRestSeconds))
			}
			if s.TargetIntensity != nil && (*s.TargetIntensity < 0 || *s.TargetIntensity > MaxTargetIntensity) {
				verr.Add(sp+".target_intensity", fmt.Sprintf("must be between 0 and %d", MaxTargetIntensity))
			}
			if s.LastAchievedLoad != nil && *s.LastAchievedLoad < 0 {
				verr.Add(sp+".last_achieved_load", "must not be negative")
			}
		}
	}
	return verr.Err()
}

// carryLoads copies LastAchievedLoad from prev into sets of next that kept
// their id but came without a load.
func carryLoads(prev, next []models.Exercise) {
	loads := make(map[uuid.UUID]float64)
	for _, ex := range prev {
		for _, s := range ex.Sets {
			if s.LastAchievedLoad != nil {
				loads[s.ID] = *s.LastAchievedLoad
			}
		}
	}
	for i := range next {
		for j := range next[i].Sets {
			s := &next[i].Sets[j]
			if s.LastAchievedLoad != nil {
				continue
			}
			if v, ok := loads[s.ID]; ok {
				s.LastAchievedLoad = &v
			}
		}
	}
}
