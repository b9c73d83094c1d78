package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionTypePeriodSummary holds aggregated session stats for one type within a period.
type SessionTypePeriodSummary struct {
	Type            string   `json:"type"`
	Count           int      `json:"count"`
	TotalDuration   int      `json:"total_duration_sec"`
	AvgIntensity    *float64 `json:"avg_intensity,omitempty"`
	CompletionRatio *float64 `json:"avg_completion_ratio,omitempty"`
	TotalDistance   *float64 `json:"total_distance,omitempty"`
}

// TrainingSummaryPeriod holds the per-type session stats of one time period.
type TrainingSummaryPeriod struct {
	Period        string                     `json:"period"`
	Sessions      []SessionTypePeriodSummary `json:"sessions"`
	TotalDuration int                        `json:"total_duration_sec"`
}

// GetTrainingSummary returns session counts, duration, intensity and completion per period.
func (db *DB) GetTrainingSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string) ([]TrainingSummaryPeriod, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, completed_at)::date AS period,
		        type,
		        COUNT(*)::int,
		        COALESCE(SUM(duration), 0)::int,
		        AVG(intensity)::float8,
		        AVG((details->>'completion_ratio')::float8) FILTER (WHERE type = 'strength'),
		        SUM((details->>'distance')::float8) FILTER (WHERE type = 'cardio')
		 FROM workout_sessions
		 WHERE completed_at >= $2 AND completed_at < $3 AND user_id = $4
		 GROUP BY period, type
		 ORDER BY period DESC, type ASC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying training summary: %w", err)
	}
	defer rows.Close()

	periodMap := make(map[string]*TrainingSummaryPeriod)
	var periodOrder []string

	for rows.Next() {
		var periodTime time.Time
		var s SessionTypePeriodSummary
		if err := rows.Scan(&periodTime, &s.Type, &s.Count, &s.TotalDuration, &s.AvgIntensity, &s.CompletionRatio, &s.TotalDistance); err != nil {
			return nil, fmt.Errorf("scanning training summary: %w", err)
		}
		key := periodTime.Format("2006-01-02")
		if _, ok := periodMap[key]; !ok {
			periodMap[key] = &TrainingSummaryPeriod{Period: key}
			periodOrder = append(periodOrder, key)
		}
		p := periodMap[key]
		p.Sessions = append(p.Sessions, s)
		p.TotalDuration += s.TotalDuration
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]TrainingSummaryPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

// truncInterval converts a bucket such as "week" or "1 month" to the
// interval name date_trunc expects. Unknown buckets fall back to month.
func truncInterval(bucket string) string {
	switch bucket {
	case "week", "1 week":
		return "week"
	case "day", "1 day":
		return "day"
	default:
		return "month"
	}
}
