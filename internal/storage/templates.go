package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListTemplates returns all workout templates of a user ordered by name.
func (db *DB) ListTemplates(ctx context.Context, userID uuid.UUID) ([]models.WorkoutTemplate, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, exercises
		 FROM workouts
		 WHERE user_id = $1
		 ORDER BY name ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

// GetTemplate retrieves a single template. Returns ErrNotFound if the user has no such template.
func (db *DB) GetTemplate(ctx context.Context, userID, id uuid.UUID) (*models.WorkoutTemplate, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, exercises
		 FROM workouts
		 WHERE id = $1 AND user_id = $2`,
		id, userID)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// CreateTemplate inserts a template. A zero ID is replaced with a new one.
func (db *DB) CreateTemplate(ctx context.Context, t *models.WorkoutTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	exercises, err := marshalExercises(t.Exercises)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, user_id, name, exercises) VALUES ($1, $2, $3, $4)`,
		t.ID, t.UserID, t.Name, exercises)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return nil
}

// ReplaceTemplate overwrites the name and the full exercise list of a template.
func (db *DB) ReplaceTemplate(ctx context.Context, t *models.WorkoutTemplate) error {
	exercises, err := marshalExercises(t.Exercises)
	if err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workouts SET name = $3, exercises = $4, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		t.ID, t.UserID, t.Name, exercises)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes a template. Schedule days pointing at it fall back to NULL.
func (db *DB) DeleteTemplate(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workouts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func updateExercises(ctx context.Context, q querier, userID, id uuid.UUID, exercises []models.Exercise) error {
	data, err := marshalExercises(exercises)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx,
		`UPDATE workouts SET exercises = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		id, userID, data)
	if err != nil {
		return fmt.Errorf("updating template exercises: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// marshalExercises returns the JSON text of the exercise list. JSON is passed
// as a string so it encodes the same way under the simple query protocol.
func marshalExercises(exercises []models.Exercise) (string, error) {
	if exercises == nil {
		exercises = []models.Exercise{}
	}
	data, err := json.Marshal(exercises)
	if err != nil {
		return "", fmt.Errorf("encoding exercises: %w", err)
	}
	return string(data), nil
}

func scanTemplate(row pgx.Row) (*models.WorkoutTemplate, error) {
	var t models.WorkoutTemplate
	var raw []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &raw); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.Exercises); err != nil {
			return nil, fmt.Errorf("decoding exercises of template %s: %w", t.ID, err)
		}
	}
	if t.Exercises == nil {
		t.Exercises = []models.Exercise{}
	}
	return &t, nil
}
