package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConflict is returned when a unique constraint rejects a write.
var ErrConflict = errors.New("already exists")

// ListSources returns the user's measurement sources ordered by name.
func (db *DB) ListSources(ctx context.Context, userID uuid.UUID) ([]models.MeasurementSource, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name FROM user_measurement_sources WHERE user_id = $1 ORDER BY name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying measurement sources: %w", err)
	}
	defer rows.Close()

	var result []models.MeasurementSource
	for rows.Next() {
		var s models.MeasurementSource
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name); err != nil {
			return nil, fmt.Errorf("scanning measurement source: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetSource retrieves one of the user's measurement sources.
func (db *DB) GetSource(ctx context.Context, userID, id uuid.UUID) (*models.MeasurementSource, error) {
	var s models.MeasurementSource
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name FROM user_measurement_sources WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&s.ID, &s.UserID, &s.Name)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// CreateSource inserts a measurement source. Returns ErrConflict if the name is taken.
func (db *DB) CreateSource(ctx context.Context, s *models.MeasurementSource) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO user_measurement_sources (id, user_id, name) VALUES ($1, $2, $3)`,
		s.ID, s.UserID, s.Name)
	if err != nil {
		return uniqueViolation(err, "inserting measurement source")
	}
	return nil
}

// DeleteSource removes a source. Its measurements are removed by the database.
func (db *DB) DeleteSource(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM user_measurement_sources WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting measurement source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFields returns the user's custom measurement fields ordered by label.
func (db *DB) ListFields(ctx context.Context, userID uuid.UUID) ([]models.CustomMeasurementField, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, key, label, unit FROM custom_measurement_fields WHERE user_id = $1 ORDER BY label`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying custom fields: %w", err)
	}
	defer rows.Close()

	var result []models.CustomMeasurementField
	for rows.Next() {
		var f models.CustomMeasurementField
		if err := rows.Scan(&f.ID, &f.UserID, &f.Key, &f.Label, &f.Unit); err != nil {
			return nil, fmt.Errorf("scanning custom field: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// CreateField inserts a custom measurement field. Returns ErrConflict if the key is taken.
func (db *DB) CreateField(ctx context.Context, f *models.CustomMeasurementField) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO custom_measurement_fields (id, user_id, key, label, unit) VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.UserID, f.Key, f.Label, f.Unit)
	if err != nil {
		return uniqueViolation(err, "inserting custom field")
	}
	return nil
}

// DeleteField removes a custom field and strips its key from every stored measurement.
func (db *DB) DeleteField(ctx context.Context, userID, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		var key string
		err := tx.QueryRow(ctx,
			`DELETE FROM custom_measurement_fields WHERE id = $1 AND user_id = $2 RETURNING key`,
			id, userID).Scan(&key)
		if err != nil {
			return notFound(err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE body_measurements SET details = details - $2::text
			 WHERE user_id = $1 AND details ? $2`,
			userID, key)
		if err != nil {
			return fmt.Errorf("removing field %q from measurements: %w", key, err)
		}
		return nil
	})
}

// QueryMeasurements returns measurements in [start, end), newest first.
func (db *DB) QueryMeasurements(ctx context.Context, userID uuid.UUID, start, end time.Time, limit int) ([]models.BodyMeasurement, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, measured_at, source_id, weight_kg, body_fat_pct, details
		 FROM body_measurements
		 WHERE user_id = $1 AND measured_at >= $2 AND measured_at < $3
		 ORDER BY measured_at DESC
		 LIMIT $4`,
		userID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("querying measurements: %w", err)
	}
	defer rows.Close()

	var result []models.BodyMeasurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

// GetMeasurement retrieves a single measurement.
func (db *DB) GetMeasurement(ctx context.Context, userID, id uuid.UUID) (*models.BodyMeasurement, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, measured_at, source_id, weight_kg, body_fat_pct, details
		 FROM body_measurements
		 WHERE id = $1 AND user_id = $2`,
		id, userID)
	m, err := scanMeasurement(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// CreateMeasurement inserts a measurement.
func (db *DB) CreateMeasurement(ctx context.Context, m *models.BodyMeasurement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	details, err := marshalMeasurementDetails(m.Details)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO body_measurements (id, user_id, measured_at, source_id, weight_kg, body_fat_pct, details)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.UserID, m.MeasuredAt, m.SourceID, m.WeightKg, m.BodyFatPct, details)
	if err != nil {
		return fmt.Errorf("inserting measurement: %w", err)
	}
	return nil
}

// UpdateMeasurement overwrites every column of a measurement.
func (db *DB) UpdateMeasurement(ctx context.Context, m *models.BodyMeasurement) error {
	details, err := marshalMeasurementDetails(m.Details)
	if err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE body_measurements
		 SET measured_at = $3, source_id = $4, weight_kg = $5, body_fat_pct = $6, details = $7
		 WHERE id = $1 AND user_id = $2`,
		m.ID, m.UserID, m.MeasuredAt, m.SourceID, m.WeightKg, m.BodyFatPct, details)
	if err != nil {
		return fmt.Errorf("updating measurement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMeasurement removes a measurement.
func (db *DB) DeleteMeasurement(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM body_measurements WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting measurement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalMeasurementDetails(d map[string]float64) (string, error) {
	if d == nil {
		return "{}", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encoding measurement details: %w", err)
	}
	return string(data), nil
}

func scanMeasurement(row pgx.Row) (*models.BodyMeasurement, error) {
	var m models.BodyMeasurement
	var raw []byte
	if err := row.Scan(&m.ID, &m.UserID, &m.MeasuredAt, &m.SourceID, &m.WeightKg, &m.BodyFatPct, &raw); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m.Details); err != nil {
			return nil, fmt.Errorf("decoding details of measurement %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

func uniqueViolation(err error, action string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", action, err)
}
