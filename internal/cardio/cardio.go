// Package cardio computes pace and builds session records for cardio workouts.
// Nothing here keeps state; a cardio workout is logged in one step.
package cardio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/models"
)

// Upper bounds of a single cardio workout.
const (
	MaxDistance = 1000
	MaxMinutes  = 1440
)

// Input is what the user entered for a cardio workout. Distance and Minutes are
// raw form values; a blank value may be filled from the schedule by Resolve.
type Input struct {
	Name     string `json:"name"`
	Distance string `json:"distance"`
	Minutes  string `json:"time"`
}

// Pace returns minutes per unit distance formatted as M:SS. ok is false when
// either value is not positive or the pace does not fit a minute count.
func Pace(distance, minutes float64) (pace string, ok bool) {
	if distance <= 0 || minutes <= 0 {
		return "", false
	}
	p := minutes / distance
	if math.IsNaN(p) || math.IsInf(p, 0) || p >= math.MaxInt32 {
		return "", false
	}
	m := math.Floor(p)
	s := math.Round((p - m) * 60)
	if s >= 60 {
		m++
		s = 0
	}
	return fmt.Sprintf("%d:%02d", int(m), int(s)), true
}

// Resolve fills the dimension fixed by the day's cardio goal from the schedule
// target when the user left it blank. Other days return in unchanged.
func Resolve(in Input, day models.DaySchedule) Input {
	if day.WorkoutType != models.WorkoutTypeCardio || day.CardioGoalType == nil {
		return in
	}
	switch *day.CardioGoalType {
	case models.CardioGoalDistance:
		if strings.TrimSpace(in.Distance) == "" && day.Distance != nil {
			in.Distance = formatNumber(*day.Distance)
		}
	case models.CardioGoalTime:
		if strings.TrimSpace(in.Minutes) == "" && day.TargetTimeMinutes != nil {
			in.Minutes = formatNumber(*day.TargetTimeMinutes)
		}
	}
	if in.Name == "" {
		in.Name = day.Name
	}
	return in
}

// Build validates the input and produces a cardio session record completed at now.
// Both distance and time must be present, numeric, positive and within bounds.
func Build(in Input, now time.Time) (*models.WorkoutSessionRecord, error) {
	verr := &models.ValidationError{}
	distance, ok := parsePositive(in.Distance)
	switch {
	case !ok:
		verr.Add("distance", "enter a distance greater than zero")
	case distance > MaxDistance:
		verr.Add("distance", fmt.Sprintf("enter a distance of at most %d", MaxDistance))
	}
	minutes, ok := parsePositive(in.Minutes)
	switch {
	case !ok:
		verr.Add("time", "enter a time in minutes greater than zero")
	case minutes > MaxMinutes:
		verr.Add("time", fmt.Sprintf("enter a time of at most %d minutes", MaxMinutes))
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	pace, ok := Pace(distance, minutes)
	if !ok {
		verr.Add("distance", "distance is too short to compute a pace")
		return nil, verr
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Cardio"
	}
	return &models.WorkoutSessionRecord{
		Name:            name,
		Type:            models.SessionTypeCardio,
		DurationSeconds: int(math.Round(minutes * 60)),
		Week:            models.ISOWeek(now),
		Details:         &models.CardioDetails{Distance: distance, Pace: pace},
		CompletedAt:     now,
	}, nil
}

func parsePositive(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
