package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionType tags which details variant a session record carries.
type SessionType string

const (
	SessionTypeStrength SessionType = "strength"
	SessionTypeCardio   SessionType = "cardio"
)

// Intensity ratings asked for when a strength session is saved.
const (
	IntensityEasy       = 1
	IntensityModerate   = 2
	IntensityHard       = 3
	IntensityExhausting = 4
)

// ValidIntensity reports whether v is on the 1..4 scale.
func ValidIntensity(v int) bool {
	return v >= IntensityEasy && v <= IntensityExhausting
}

// Details is the per-type payload of a session record: *StrengthDetails or *CardioDetails.
type Details interface {
	SessionType() SessionType
}

// SetResult is the outcome of one set in a finished strength session.
type SetResult struct {
	Kind            SetKind  `json:"kind"`
	SetNumber       int      `json:"set_number"`
	TargetReps      int      `json:"target_reps"`
	TargetIntensity *float64 `json:"target_intensity,omitempty"`
	AchievedReps    *int     `json:"achieved_reps,omitempty"`
	AchievedLoad    *float64 `json:"achieved_load,omitempty"`
	Completed       bool     `json:"completed"`
}

// ExerciseResult groups set results under the exercise they belong to.
type ExerciseResult struct {
	Name      string      `json:"name"`
	Completed bool        `json:"completed"`
	Sets      []SetResult `json:"sets"`
}

// StrengthDetails summarises a completed strength session.
type StrengthDetails struct {
	Exercises          []ExerciseResult `json:"exercises"`
	ExercisesCompleted int              `json:"exercises_completed"`
	TotalExercises     int              `json:"total_exercises"`
	CompletionRatio    float64          `json:"completion_ratio"`
}

func (*StrengthDetails) SessionType() SessionType { return SessionTypeStrength }

// CardioDetails records distance and the formatted pace (M:SS per unit distance).
type CardioDetails struct {
	Distance float64 `json:"distance"`
	Pace     string  `json:"pace"`
}

func (*CardioDetails) SessionType() SessionType { return SessionTypeCardio }

// WorkoutSessionRecord is the immutable history entry written when a session ends.
type WorkoutSessionRecord struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	Name            string      `json:"name"`
	Type            SessionType `json:"type"`
	DurationSeconds int         `json:"duration"`
	Week            int         `json:"week"`
	Intensity       *int        `json:"intensity,omitempty"`
	Details         Details     `json:"details"`
	CompletedAt     time.Time   `json:"completed_at"`
}

// UnmarshalJSON decodes Details into the variant named by Type.
func (r *WorkoutSessionRecord) UnmarshalJSON(data []byte) error {
	type alias WorkoutSessionRecord
	var raw struct {
		alias
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = WorkoutSessionRecord(raw.alias)
	details, err := DecodeDetails(r.Type, raw.Details)
	if err != nil {
		return err
	}
	r.Details = details
	return nil
}

// DecodeDetails decodes a stored details document for the given session type.
// An empty document yields nil details.
func DecodeDetails(t SessionType, data []byte) (Details, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	switch t {
	case SessionTypeStrength:
		var d StrengthDetails
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decoding strength details: %w", err)
		}
		return &d, nil
	case SessionTypeCardio:
		var d CardioDetails
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decoding cardio details: %w", err)
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("unknown session type %q", t)
	}
}

// ISOWeek returns the ISO-8601 week number used for the record's week column.
func ISOWeek(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}
