package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IntensityBand holds the count and percentage of strength sessions rated at one intensity.
type IntensityBand struct {
	Intensity int     `json:"intensity"`
	Label     string  `json:"label"`
	Sessions  int     `json:"sessions"`
	Pct       float64 `json:"pct"`
}

// TrainingIntensityResult holds the distribution of saved intensity ratings.
type TrainingIntensityResult struct {
	Distribution  []IntensityBand `json:"distribution"`
	RatedSessions int             `json:"rated_sessions"`
	TotalSessions int             `json:"total_sessions"`
}

var intensityLabels = [...]string{"", "easy", "moderate", "hard", "exhausting"}

// GetTrainingIntensity returns how often each intensity rating was given in [start, end).
// Sessions without a rating (cardio, imports) count only towards TotalSessions.
func (db *DB) GetTrainingIntensity(ctx context.Context, userID uuid.UUID, start, end time.Time) (*TrainingIntensityResult, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT intensity, COUNT(*)::int
		 FROM workout_sessions
		 WHERE completed_at >= $1 AND completed_at < $2 AND user_id = $3
		 GROUP BY intensity`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying intensity distribution: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	result := &TrainingIntensityResult{}
	for rows.Next() {
		var intensity *int
		var n int
		if err := rows.Scan(&intensity, &n); err != nil {
			return nil, fmt.Errorf("scanning intensity distribution: %w", err)
		}
		result.TotalSessions += n
		if intensity == nil {
			continue
		}
		counts[*intensity] = n
		result.RatedSessions += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.Distribution = intensityBands(counts, result.RatedSessions)
	return result, nil
}

func intensityBands(counts map[int]int, rated int) []IntensityBand {
	bands := make([]IntensityBand, 0, len(intensityLabels)-1)
	for i := 1; i < len(intensityLabels); i++ {
		b := IntensityBand{Intensity: i, Label: intensityLabels[i], Sessions: counts[i]}
		if rated > 0 {
			b.Pct = float64(counts[i]) / float64(rated) * 100
		}
		bands = append(bands, b)
	}
	return bands
}
