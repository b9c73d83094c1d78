package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func ptr[T any](v T) *T { return &v }

// TestNormalizeStrengthClearsCardio verifies that a strength day never keeps
// cardio goal fields.
func TestNormalizeStrengthClearsCardio(t *testing.T) {
	goal := CardioGoalDistance
	id := uuid.New()
	d := DaySchedule{
		Day:               1,
		WorkoutType:       WorkoutTypeStrength,
		WorkoutID:         &id,
		Distance:          ptr(5.0),
		TargetTimeMinutes: ptr(30.0),
		CardioGoalType:    &goal,
	}
	d.Normalize()

	if d.Distance != nil || d.TargetTimeMinutes != nil || d.CardioGoalType != nil {
		t.Errorf("cardio fields not cleared: %+v", d)
	}
	if d.WorkoutID == nil || *d.WorkoutID != id {
		t.Errorf("workout_id = %v, want %v", d.WorkoutID, id)
	}
}

// TestNormalizeCardioAndRestClearWorkout verifies that cardio and rest days drop
// the template reference.
func TestNormalizeCardioAndRestClearWorkout(t *testing.T) {
	for _, wt := range []WorkoutType{WorkoutTypeCardio, WorkoutTypeRest} {
		id := uuid.New()
		d := DaySchedule{WorkoutType: wt, WorkoutID: &id, Distance: ptr(3.0)}
		d.Normalize()
		if d.WorkoutID != nil {
			t.Errorf("%s: workout_id = %v, want nil", wt, d.WorkoutID)
		}
	}
}

// TestDefaultWeek verifies seven unique days, Sunday first, all rest.
func TestDefaultWeek(t *testing.T) {
	week := DefaultWeek()
	if len(week) != DaysInWeek {
		t.Fatalf("len = %d, want %d", len(week), DaysInWeek)
	}
	for i, d := range week {
		if d.Day != i {
			t.Errorf("week[%d].Day = %d", i, d.Day)
		}
		if d.WorkoutType != WorkoutTypeRest {
			t.Errorf("week[%d].WorkoutType = %q, want rest", i, d.WorkoutType)
		}
	}
	if week[0].Name != "Sunday" {
		t.Errorf("week[0].Name = %q, want Sunday", week[0].Name)
	}
}

// TestEffectiveRest verifies per-kind defaults apply only when rest is unset.
func TestEffectiveRest(t *testing.T) {
	tests := []struct {
		set  SetTemplate
		want int
	}{
		{SetTemplate{Kind: SetKindWork}, 90},
		{SetTemplate{Kind: SetKindWarmup}, 60},
		{SetTemplate{Kind: SetKindWork, RestSeconds: 120}, 120},
		{SetTemplate{Kind: SetKindWarmup, RestSeconds: 30}, 30},
	}
	for _, tt := range tests {
		if got := tt.set.EffectiveRest(); got != tt.want {
			t.Errorf("EffectiveRest(%+v) = %d, want %d", tt.set, got, tt.want)
		}
	}
}

// TestApplyLoads verifies only the listed sets are overwritten.
func TestApplyLoads(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	exercises := []Exercise{{
		Name: "Squat",
		Sets: []SetTemplate{
			{ID: a, Kind: SetKindWork, LastAchievedLoad: ptr(100.0)},
			{ID: b, Kind: SetKindWork, LastAchievedLoad: ptr(100.0)},
		},
	}}

	n := ApplyLoads(exercises, map[uuid.UUID]float64{a: 105})
	if n != 1 {
		t.Fatalf("changed = %d, want 1", n)
	}
	if got := *exercises[0].Sets[0].LastAchievedLoad; got != 105 {
		t.Errorf("set a load = %v, want 105", got)
	}
	if got := *exercises[0].Sets[1].LastAchievedLoad; got != 100 {
		t.Errorf("set b load = %v, want 100", got)
	}
}

// TestRecordDetailsDecodeByType verifies the details union is decoded into the
// variant named by the record type.
func TestRecordDetailsDecodeByType(t *testing.T) {
	in := `{"name":"Run","type":"cardio","duration":1500,"week":3,"details":{"distance":5,"pace":"5:00"}}`
	var rec WorkoutSessionRecord
	if err := json.Unmarshal([]byte(in), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cd, ok := rec.Details.(*CardioDetails)
	if !ok {
		t.Fatalf("details type = %T, want *CardioDetails", rec.Details)
	}
	if cd.Pace != "5:00" || cd.Distance != 5 {
		t.Errorf("details = %+v", cd)
	}
	if rec.DurationSeconds != 1500 {
		t.Errorf("duration = %d, want 1500", rec.DurationSeconds)
	}
}

// TestDecodeDetailsUnknownType verifies that unknown session types are rejected.
func TestDecodeDetailsUnknownType(t *testing.T) {
	if _, err := DecodeDetails("yoga", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestProfileValidate(t *testing.T) {
	ok := Profile{WeightUnit: "lb", DistanceUnit: "mi", DisplayName: "Sam"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid profile rejected: %v", err)
	}

	bad := Profile{WeightUnit: "stone", DistanceUnit: "km"}
	err := bad.Validate()
	verr, isVerr := err.(*ValidationError)
	if !isVerr {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if _, has := verr.Fields["weight_unit"]; !has || len(verr.Fields) != 1 {
		t.Errorf("fields = %v", verr.Fields)
	}
}
