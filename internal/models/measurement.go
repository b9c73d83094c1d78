package models

import (
	"time"

	"github.com/google/uuid"
)

// MeasurementSource is where a measurement came from (a scale, a caliper, a clinic).
type MeasurementSource struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

// CustomMeasurementField is a user-defined measurement dimension such as "waist".
type CustomMeasurementField struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Key    string    `json:"key"`
	Label  string    `json:"label"`
	Unit   string    `json:"unit,omitempty"`
}

// BodyMeasurement is one dated measurement entry.
type BodyMeasurement struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.UUID          `json:"user_id"`
	MeasuredAt time.Time          `json:"measured_at"`
	SourceID   *uuid.UUID         `json:"source_id"`
	WeightKg   *float64           `json:"weight_kg,omitempty"`
	BodyFatPct *float64           `json:"body_fat_pct,omitempty"`
	Details    map[string]float64 `json:"details,omitempty"`
}

// Profile holds per-user display preferences.
type Profile struct {
	UserID       uuid.UUID `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	WeightUnit   string    `json:"weight_unit"`
	DistanceUnit string    `json:"distance_unit"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the unit choices and display name length.
func (p *Profile) Validate() error {
	verr := &ValidationError{}
	if p.WeightUnit != "kg" && p.WeightUnit != "lb" {
		verr.Add("weight_unit", "must be kg or lb")
	}
	if p.DistanceUnit != "km" && p.DistanceUnit != "mi" {
		verr.Add("distance_unit", "must be km or mi")
	}
	if len([]rune(p.DisplayName)) > 80 {
		verr.Add("display_name", "must be at most 80 characters")
	}
	return verr.Err()
}
