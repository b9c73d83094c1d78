package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutType is the planned activity for a weekday.
type WorkoutType string

const (
	WorkoutTypeStrength WorkoutType = "strength"
	WorkoutTypeCardio   WorkoutType = "cardio"
	WorkoutTypeRest     WorkoutType = "rest"
)

// Valid reports whether t is a known workout type.
func (t WorkoutType) Valid() bool {
	switch t {
	case WorkoutTypeStrength, WorkoutTypeCardio, WorkoutTypeRest:
		return true
	}
	return false
}

// CardioGoalType says which cardio dimension the schedule fixes.
// With a distance goal the user enters time; with a time goal the user enters distance.
type CardioGoalType string

const (
	CardioGoalDistance CardioGoalType = "distance"
	CardioGoalTime     CardioGoalType = "time"
)

// DaysInWeek is the number of schedule entries per user.
const DaysInWeek = 7

// DaySchedule is the plan for one weekday (0=Sunday .. 6=Saturday).
type DaySchedule struct {
	Day               int             `json:"day"`
	Name              string          `json:"name"`
	WorkoutType       WorkoutType     `json:"workout_type"`
	WorkoutID         *uuid.UUID      `json:"workout_id"`
	Distance          *float64        `json:"distance"`
	TargetTimeMinutes *float64        `json:"target_time"`
	CardioGoalType    *CardioGoalType `json:"cardio_goal_type"`
}

// Normalize enforces the workout-type invariant: strength days carry no cardio
// fields, cardio and rest days carry no workout id.
func (d *DaySchedule) Normalize() {
	switch d.WorkoutType {
	case WorkoutTypeStrength:
		d.Distance = nil
		d.TargetTimeMinutes = nil
		d.CardioGoalType = nil
	case WorkoutTypeCardio, WorkoutTypeRest:
		d.WorkoutID = nil
	}
}

// DefaultWeek returns seven rest days named after their weekday.
func DefaultWeek() []DaySchedule {
	week := make([]DaySchedule, DaysInWeek)
	for i := range week {
		week[i] = DaySchedule{
			Day:         i,
			Name:        time.Weekday(i).String(),
			WorkoutType: WorkoutTypeRest,
		}
	}
	return week
}
