package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionQuery filters the session history.
type SessionQuery struct {
	Start time.Time
	End   time.Time
	Type  models.SessionType // empty matches every type
	Limit int
}

// InsertSession inserts a session record. Returns true if inserted, false if a
// record with the same (user, name, completed_at) already exists.
func (db *DB) InsertSession(ctx context.Context, rec *models.WorkoutSessionRecord) (bool, error) {
	return insertSession(ctx, db.Pool, rec)
}

// sessionBatchSize keeps a multi-row insert under the 65535 parameter limit.
const sessionBatchSize = 1000

// InsertSessions batch-inserts session records in one transaction, skipping
// duplicates. Returns count inserted. Either every batch is stored or none is.
func (db *DB) InsertSessions(ctx context.Context, recs []models.WorkoutSessionRecord) (int64, error) {
	var total int64
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		for start := 0; start < len(recs); start += sessionBatchSize {
			end := min(start+sessionBatchSize, len(recs))
			n, err := insertSessionBatch(ctx, tx, recs[start:end])
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func insertSessionBatch(ctx context.Context, q querier, recs []models.WorkoutSessionRecord) (int64, error) {
	query := `INSERT INTO workout_sessions (id, user_id, name, type, duration, week, intensity, details, completed_at) VALUES `
	args := make([]any, 0, len(recs)*9)
	valueStrings := make([]string, 0, len(recs))

	for i := range recs {
		r := &recs[i]
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		details, err := marshalDetails(r.Details)
		if err != nil {
			return 0, err
		}
		base := i * 9
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args, r.ID, r.UserID, r.Name, string(r.Type), r.DurationSeconds,
			r.Week, r.Intensity, details, r.CompletedAt)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CompleteSession stores a finished strength session and writes the achieved
// loads back into its template in one transaction. loads is keyed by set ID.
// If the template no longer exists the record is still stored.
func (db *DB) CompleteSession(ctx context.Context, rec *models.WorkoutSessionRecord, templateID uuid.UUID, loads map[uuid.UUID]float64) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := insertSession(ctx, tx, rec); err != nil {
			return err
		}
		if len(loads) == 0 {
			return nil
		}

		var raw []byte
		err := tx.QueryRow(ctx,
			`SELECT exercises FROM workouts WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			templateID, rec.UserID).Scan(&raw)
		if err != nil {
			if notFound(err) == ErrNotFound {
				return nil
			}
			return fmt.Errorf("locking template %s: %w", templateID, err)
		}

		var exercises []models.Exercise
		if err := json.Unmarshal(raw, &exercises); err != nil {
			return fmt.Errorf("decoding exercises of template %s: %w", templateID, err)
		}
		if models.ApplyLoads(exercises, loads) == 0 {
			return nil
		}
		return updateExercises(ctx, tx, rec.UserID, templateID, exercises)
	})
}

// QuerySessions returns session records in [Start, End), newest first.
func (db *DB) QuerySessions(ctx context.Context, userID uuid.UUID, q SessionQuery) ([]models.WorkoutSessionRecord, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	var typ *string
	if q.Type != "" {
		s := string(q.Type)
		typ = &s
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, type, duration, week, intensity, details, completed_at
		 FROM workout_sessions
		 WHERE user_id = $1 AND completed_at >= $2 AND completed_at < $3
		   AND ($4::text IS NULL OR type = $4)
		 ORDER BY completed_at DESC
		 LIMIT $5`,
		userID, q.Start, q.End, typ, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// GetSession retrieves a single session record.
func (db *DB) GetSession(ctx context.Context, userID, id uuid.UUID) (*models.WorkoutSessionRecord, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, type, duration, week, intensity, details, completed_at
		 FROM workout_sessions
		 WHERE id = $1 AND user_id = $2`,
		id, userID)
	rec, err := scanSession(row)
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

// DeleteSession removes a session record from the history.
func (db *DB) DeleteSession(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertSession(ctx context.Context, q querier, rec *models.WorkoutSessionRecord) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	details, err := marshalDetails(rec.Details)
	if err != nil {
		return false, err
	}
	tag, err := q.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, name, type, duration, week, intensity, details, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT DO NOTHING`,
		rec.ID, rec.UserID, rec.Name, string(rec.Type), rec.DurationSeconds,
		rec.Week, rec.Intensity, details, rec.CompletedAt)
	if err != nil {
		return false, fmt.Errorf("inserting session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func marshalDetails(d models.Details) (string, error) {
	if d == nil {
		return "{}", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encoding session details: %w", err)
	}
	return string(data), nil
}

func scanSession(row pgx.Row) (*models.WorkoutSessionRecord, error) {
	var rec models.WorkoutSessionRecord
	var typ string
	var raw []byte
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &typ, &rec.DurationSeconds,
		&rec.Week, &rec.Intensity, &raw, &rec.CompletedAt); err != nil {
		return nil, err
	}
	rec.Type = models.SessionType(typ)
	details, err := models.DecodeDetails(rec.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", rec.ID, err)
	}
	rec.Details = details
	return &rec, nil
}
