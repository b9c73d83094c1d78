package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DataStats holds aggregate statistics about all stored data.
type DataStats struct {
	TotalTemplates    int64             `json:"total_templates"`
	TotalSessions     int64             `json:"total_sessions"`
	TotalMeasurements int64             `json:"total_measurements"`
	EarliestData      *time.Time        `json:"earliest_data"`
	LatestData        *time.Time        `json:"latest_data"`
	SessionsByType    []SessionTypeStat `json:"sessions_by_type"`
}

// SessionTypeStat holds summary stats for a single session type.
type SessionTypeStat struct {
	Type          string   `json:"type"`
	Count         int64    `json:"count"`
	TotalDuration int64    `json:"total_duration_sec"`
	TotalDistance *float64 `json:"total_distance,omitempty"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID uuid.UUID) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM workouts WHERE user_id = $1),
			(SELECT COUNT(*) FROM workout_sessions WHERE user_id = $1),
			(SELECT COUNT(*) FROM body_measurements WHERE user_id = $1)`,
		userID,
	).Scan(&stats.TotalTemplates, &stats.TotalSessions, &stats.TotalMeasurements)
	if err != nil {
		return nil, fmt.Errorf("counting rows: %w", err)
	}

	// Date range across sessions and measurements
	err = db.Pool.QueryRow(ctx,
		`SELECT MIN(t), MAX(t) FROM (
			SELECT completed_at AS t FROM workout_sessions WHERE user_id = $1
			UNION ALL
			SELECT measured_at FROM body_measurements WHERE user_id = $1
		) sub`, userID,
	).Scan(&stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("querying date range: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT type, COUNT(*), COALESCE(SUM(duration), 0),
		        SUM((details->>'distance')::float8) FILTER (WHERE type = 'cardio')
		 FROM workout_sessions
		 WHERE user_id = $1
		 GROUP BY type
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s SessionTypeStat
		if err := rows.Scan(&s.Type, &s.Count, &s.TotalDuration, &s.TotalDistance); err != nil {
			return nil, fmt.Errorf("scanning session type stat: %w", err)
		}
		stats.SessionsByType = append(stats.SessionsByType, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
