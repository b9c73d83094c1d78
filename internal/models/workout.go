package models

import (
	"github.com/google/uuid"
)

// SetKind distinguishes warm-up sets from work sets.
type SetKind string

const (
	SetKindWarmup SetKind = "warmup"
	SetKindWork   SetKind = "work"
)

// Valid reports whether k is a known set kind.
func (k SetKind) Valid() bool {
	return k == SetKindWarmup || k == SetKindWork
}

// Default rest durations applied when a set template leaves RestSeconds at 0.
const (
	DefaultWorkRestSeconds   = 90
	DefaultWarmupRestSeconds = 60
)

// SetTemplate is one prescribed set of an exercise.
type SetTemplate struct {
	ID               uuid.UUID `json:"id"`
	Kind             SetKind   `json:"kind"`
	TargetReps       int       `json:"target_reps"`
	TargetIntensity  *float64  `json:"target_intensity,omitempty"` // RPE/RIR target
	RestSeconds      int       `json:"rest_seconds"`
	LastAchievedLoad *float64  `json:"last_achieved_load,omitempty"`
}

// EffectiveRest returns the configured rest, falling back to the per-kind default.
func (s SetTemplate) EffectiveRest() int {
	if s.RestSeconds > 0 {
		return s.RestSeconds
	}
	if s.Kind == SetKindWarmup {
		return DefaultWarmupRestSeconds
	}
	return DefaultWorkRestSeconds
}

// Exercise is an ordered list of set templates plus free-text notes.
type Exercise struct {
	ID    uuid.UUID     `json:"id"`
	Name  string        `json:"name"`
	Notes string        `json:"notes,omitempty"`
	Sets  []SetTemplate `json:"sets"`
}

// WorkoutTemplate is a user-authored, reusable workout definition.
// Exercises are stored as a single JSON document per row.
type WorkoutTemplate struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	Exercises []Exercise `json:"exercises"`
}

// ApplyLoads overwrites LastAchievedLoad on every set whose ID appears in loads.
// It returns the number of sets changed. Exercises are modified in place.
func ApplyLoads(exercises []Exercise, loads map[uuid.UUID]float64) int {
	changed := 0
	for i := range exercises {
		for j := range exercises[i].Sets {
			set := &exercises[i].Sets[j]
			load, ok := loads[set.ID]
			if !ok {
				continue
			}
			v := load
			set.LastAchievedLoad = &v
			changed++
		}
	}
	return changed
}
