// Package measurement validates and stores body measurements, their sources
// and the user's custom measurement fields.
package measurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
)

// Accepted ranges.
const (
	MinWeightKg   = 20.0
	MaxWeightKg   = 400.0
	MinBodyFatPct = 2.0
	MaxBodyFatPct = 70.0
)

// maxFutureSkew tolerates clients whose clock runs ahead.
const maxFutureSkew = 24 * time.Hour

var fieldKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// Store is the persistence the service needs. *storage.DB satisfies it.
type Store interface {
	ListSources(ctx context.Context, userID uuid.UUID) ([]models.MeasurementSource, error)
	GetSource(ctx context.Context, userID, id uuid.UUID) (*models.MeasurementSource, error)
	CreateSource(ctx context.Context, s *models.MeasurementSource) error
	DeleteSource(ctx context.Context, userID, id uuid.UUID) error

	ListFields(ctx context.Context, userID uuid.UUID) ([]models.CustomMeasurementField, error)
	CreateField(ctx context.Context, f *models.CustomMeasurementField) error
	DeleteField(ctx context.Context, userID, id uuid.UUID) error

	QueryMeasurements(ctx context.Context, userID uuid.UUID, start, end time.Time, limit int) ([]models.BodyMeasurement, error)
	GetMeasurement(ctx context.Context, userID, id uuid.UUID) (*models.BodyMeasurement, error)
	CreateMeasurement(ctx context.Context, m *models.BodyMeasurement) error
	UpdateMeasurement(ctx context.Context, m *models.BodyMeasurement) error
	DeleteMeasurement(ctx context.Context, userID, id uuid.UUID) error
}

// Service validates measurement input before it reaches the store.
type Service struct {
	store Store
	now   func() time.Time
	log   *slog.Logger
}

// NewService creates a measurement service.
func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, now: time.Now, log: log}
}

// List returns measurements in [start, end), newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, start, end time.Time, limit int) ([]models.BodyMeasurement, error) {
	return s.store.QueryMeasurements(ctx, userID, start, end, limit)
}

// Create validates m and stores it for userID. A zero MeasuredAt means now.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, m *models.BodyMeasurement) error {
	m.ID = uuid.Nil
	m.UserID = userID
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = s.now()
	}
	if err := s.validate(ctx, userID, m); err != nil {
		return err
	}
	return s.store.CreateMeasurement(ctx, m)
}

// Update validates m and overwrites measurement id.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, m *models.BodyMeasurement) error {
	prev, err := s.store.GetMeasurement(ctx, userID, id)
	if err != nil {
		return err
	}
	m.ID = id
	m.UserID = userID
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = prev.MeasuredAt
	}
	if err := s.validate(ctx, userID, m); err != nil {
		return err
	}
	return s.store.UpdateMeasurement(ctx, m)
}

// Delete removes a measurement.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.DeleteMeasurement(ctx, userID, id)
}

// validate checks ranges, the source and custom detail keys. All problems are
// reported together.
func (s *Service) validate(ctx context.Context, userID uuid.UUID, m *models.BodyMeasurement) error {
	verr := &models.ValidationError{}

	if m.SourceID == nil {
		verr.Add("source_id", "select where the measurement comes from")
	} else if _, err := s.store.GetSource(ctx, userID, *m.SourceID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("checking measurement source: %w", err)
		}
		verr.Add("source_id", "unknown measurement source")
	}

	if m.WeightKg != nil && !inRange(*m.WeightKg, MinWeightKg, MaxWeightKg) {
		verr.Add("weight_kg", fmt.Sprintf("weight must be between %g and %g kg", MinWeightKg, MaxWeightKg))
	}
	if m.BodyFatPct != nil && !inRange(*m.BodyFatPct, MinBodyFatPct, MaxBodyFatPct) {
		verr.Add("body_fat_pct", fmt.Sprintf("body fat must be between %g and %g %%", MinBodyFatPct, MaxBodyFatPct))
	}
	if m.MeasuredAt.After(s.now().Add(maxFutureSkew)) {
		verr.Add("measured_at", "measurement date is in the future")
	}

	if len(m.Details) > 0 {
		fields, err := s.store.ListFields(ctx, userID)
		if err != nil {
			return fmt.Errorf("loading custom fields: %w", err)
		}
		known := make(map[string]bool, len(fields))
		for _, f := range fields {
			known[f.Key] = true
		}
		for key, v := range m.Details {
			switch {
			case !known[key]:
				verr.Add("details."+key, "unknown measurement field")
			case math.IsNaN(v) || math.IsInf(v, 0) || v < 0:
				verr.Add("details."+key, "must be a non-negative number")
			}
		}
	}

	if m.WeightKg == nil && m.BodyFatPct == nil && len(m.Details) == 0 {
		verr.Add("weight_kg", "enter at least one value")
	}
	return verr.Err()
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// Sources returns the user's measurement sources.
func (s *Service) Sources(ctx context.Context, userID uuid.UUID) ([]models.MeasurementSource, error) {
	return s.store.ListSources(ctx, userID)
}

// CreateSource adds a named source. Returns storage.ErrConflict if the name is taken.
func (s *Service) CreateSource(ctx context.Context, userID uuid.UUID, name string) (*models.MeasurementSource, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		verr := &models.ValidationError{}
		verr.Add("name", "name is required")
		return nil, verr
	}
	src := &models.MeasurementSource{UserID: userID, Name: name}
	if err := s.store.CreateSource(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

// DeleteSource removes a source together with its measurements.
func (s *Service) DeleteSource(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.DeleteSource(ctx, userID, id); err != nil {
		return err
	}
	s.log.Info("measurement source deleted", "user", userID, "source", id)
	return nil
}

// Fields returns the user's custom measurement fields.
func (s *Service) Fields(ctx context.Context, userID uuid.UUID) ([]models.CustomMeasurementField, error) {
	return s.store.ListFields(ctx, userID)
}

// CreateField adds a custom field. Keys are lower-case identifiers; weight and
// body fat are built in and cannot be redefined.
func (s *Service) CreateField(ctx context.Context, userID uuid.UUID, f *models.CustomMeasurementField) error {
	f.ID = uuid.Nil
	f.UserID = userID
	f.Key = strings.TrimSpace(f.Key)
	f.Label = strings.TrimSpace(f.Label)

	verr := &models.ValidationError{}
	switch {
	case !fieldKeyRe.MatchString(f.Key):
		verr.Add("key", "use 1-32 lower-case letters, digits or underscores, starting with a letter")
	case f.Key == "weight_kg" || f.Key == "body_fat_pct":
		verr.Add("key", "built-in measurement")
	}
	if f.Label == "" {
		verr.Add("label", "label is required")
	}
	if err := verr.Err(); err != nil {
		return err
	}
	return s.store.CreateField(ctx, f)
}

// DeleteField removes a custom field and its values from stored measurements.
func (s *Service) DeleteField(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.DeleteField(ctx, userID, id)
}
