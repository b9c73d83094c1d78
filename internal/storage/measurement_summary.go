package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MeasurementSummaryPeriod holds aggregated weight and body fat for one time period.
type MeasurementSummaryPeriod struct {
	Period        string   `json:"period"`
	Entries       int      `json:"entries"`
	AvgWeightKg   *float64 `json:"avg_weight_kg,omitempty"`
	MinWeightKg   *float64 `json:"min_weight_kg,omitempty"`
	MaxWeightKg   *float64 `json:"max_weight_kg,omitempty"`
	AvgBodyFatPct *float64 `json:"avg_body_fat_pct,omitempty"`
	WeightDeltaKg *float64 `json:"weight_delta_kg,omitempty"`
}

// GetMeasurementSummary returns the weight and body fat series per period, oldest first.
// WeightDeltaKg is the change of the period average against the previous period that has one.
func (db *DB) GetMeasurementSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string) ([]MeasurementSummaryPeriod, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, measured_at)::date AS period,
		        COUNT(*)::int,
		        AVG(weight_kg),
		        MIN(weight_kg),
		        MAX(weight_kg),
		        AVG(body_fat_pct)
		 FROM body_measurements
		 WHERE measured_at >= $2 AND measured_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period ASC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying measurement summary: %w", err)
	}
	defer rows.Close()

	var result []MeasurementSummaryPeriod
	for rows.Next() {
		var periodTime time.Time
		var p MeasurementSummaryPeriod
		if err := rows.Scan(&periodTime, &p.Entries, &p.AvgWeightKg, &p.MinWeightKg, &p.MaxWeightKg, &p.AvgBodyFatPct); err != nil {
			return nil, fmt.Errorf("scanning measurement summary: %w", err)
		}
		p.Period = periodTime.Format("2006-01-02")
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fillWeightDeltas(result)
	return result, nil
}

func fillWeightDeltas(periods []MeasurementSummaryPeriod) {
	var prev *float64
	for i := range periods {
		avg := periods[i].AvgWeightKg
		if avg == nil {
			continue
		}
		if prev != nil {
			d := *avg - *prev
			periods[i].WeightDeltaKg = &d
		}
		prev = avg
	}
}
