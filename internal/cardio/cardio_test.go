package cardio

import (
	"errors"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/models"
)

// TestPace verifies M:SS formatting, zero padding and carry of rounded seconds.
func TestPace(t *testing.T) {
	tests := []struct {
		distance, minutes float64
		want              string
		ok                bool
	}{
		{5, 25, "5:00", true},
		{5, 27.5, "5:30", true},
		{10, 52, "5:12", true},
		{3, 10, "3:20", true},
		{1, 4.05, "4:03", true},
		{1, 4.999, "5:00", true},
		{0, 25, "", false},
		{5, 0, "", false},
		{-1, 10, "", false},
		{1e-300, 1e300, "", false},
		{1e-12, 1440, "", false},
	}
	for _, tt := range tests {
		got, ok := Pace(tt.distance, tt.minutes)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Pace(%v, %v) = %q, %v; want %q, %v", tt.distance, tt.minutes, got, ok, tt.want, tt.ok)
		}
	}
}

// TestBuildRun verifies the 5 km in 25 minutes flow end to end.
func TestBuildRun(t *testing.T) {
	now := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	rec, err := Build(Input{Name: "Morning run", Distance: "5", Minutes: "25"}, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rec.Type != models.SessionTypeCardio {
		t.Errorf("type = %q", rec.Type)
	}
	if rec.DurationSeconds != 1500 {
		t.Errorf("duration = %d, want 1500", rec.DurationSeconds)
	}
	if rec.Week != 10 {
		t.Errorf("week = %d, want 10", rec.Week)
	}
	cd, ok := rec.Details.(*models.CardioDetails)
	if !ok {
		t.Fatalf("details = %T", rec.Details)
	}
	if cd.Distance != 5 || cd.Pace != "5:00" {
		t.Errorf("details = %+v, want distance 5 pace 5:00", cd)
	}
	if rec.Intensity != nil {
		t.Errorf("intensity = %v, want nil", *rec.Intensity)
	}
}

// TestBuildRequiresBothValues verifies field errors for blank, non-numeric or out of range input.
func TestBuildRequiresBothValues(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		fields []string
	}{
		{"blank", Input{}, []string{"distance", "time"}},
		{"no time", Input{Distance: "5"}, []string{"time"}},
		{"text distance", Input{Distance: "far", Minutes: "20"}, []string{"distance"}},
		{"zero", Input{Distance: "0", Minutes: "20"}, []string{"distance"}},
		{"huge time", Input{Distance: "0.0000001", Minutes: "1e300"}, []string{"time"}},
		{"too far", Input{Distance: "1001", Minutes: "60"}, []string{"distance"}},
		{"over a day", Input{Distance: "5", Minutes: "1441"}, []string{"time"}},
		{"no pace", Input{Distance: "1e-12", Minutes: "1440"}, []string{"distance"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.in, time.Now())
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if len(verr.Fields) != len(tt.fields) {
				t.Errorf("fields = %v, want %v", verr.Fields, tt.fields)
			}
			for _, f := range tt.fields {
				if _, ok := verr.Fields[f]; !ok {
					t.Errorf("missing error for %q", f)
				}
			}
		})
	}
}

// TestBuildAcceptsDecimalComma verifies "7,5" parses as 7.5.
func TestBuildAcceptsDecimalComma(t *testing.T) {
	rec, err := Build(Input{Distance: "7,5", Minutes: "45"}, time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d := rec.Details.(*models.CardioDetails); d.Distance != 7.5 || d.Pace != "6:00" {
		t.Errorf("details = %+v", d)
	}
}

// TestResolve verifies only the dimension fixed by the goal is filled.
func TestResolve(t *testing.T) {
	dist, minutes := 5.0, 30.0
	distanceGoal := models.CardioGoalDistance
	timeGoal := models.CardioGoalTime

	day := models.DaySchedule{
		Name:              "Tempo",
		WorkoutType:       models.WorkoutTypeCardio,
		Distance:          &dist,
		TargetTimeMinutes: &minutes,
		CardioGoalType:    &distanceGoal,
	}
	got := Resolve(Input{Minutes: "24"}, day)
	if got.Distance != "5" || got.Minutes != "24" || got.Name != "Tempo" {
		t.Errorf("distance goal: %+v", got)
	}

	day.CardioGoalType = &timeGoal
	got = Resolve(Input{Distance: "6"}, day)
	if got.Distance != "6" || got.Minutes != "30" {
		t.Errorf("time goal: %+v", got)
	}

	// user input is never overwritten
	got = Resolve(Input{Distance: "6", Minutes: "28"}, day)
	if got.Minutes != "28" {
		t.Errorf("time overwritten: %+v", got)
	}

	rest := models.DaySchedule{WorkoutType: models.WorkoutTypeRest}
	if got := Resolve(Input{}, rest); got != (Input{}) {
		t.Errorf("rest day filled input: %+v", got)
	}
}
