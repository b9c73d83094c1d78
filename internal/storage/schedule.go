package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// GetSchedule returns the user's seven schedule days ordered Sunday first.
// Days without a stored row are filled with default rest days.
func (db *DB) GetSchedule(ctx context.Context, userID uuid.UUID) ([]models.DaySchedule, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT day, name, workout_type, workout_id, cardio_goal_type, distance, target_time
		 FROM weekly_schedule
		 WHERE user_id = $1
		 ORDER BY day ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying schedule: %w", err)
	}
	defer rows.Close()

	week := models.DefaultWeek()
	for rows.Next() {
		var d models.DaySchedule
		var goal *string
		if err := rows.Scan(&d.Day, &d.Name, &d.WorkoutType, &d.WorkoutID, &goal, &d.Distance, &d.TargetTimeMinutes); err != nil {
			return nil, fmt.Errorf("scanning schedule day: %w", err)
		}
		if goal != nil {
			g := models.CardioGoalType(*goal)
			d.CardioGoalType = &g
		}
		if d.Day < 0 || d.Day >= models.DaysInWeek {
			continue
		}
		week[d.Day] = d
	}
	return week, rows.Err()
}

// UpsertSchedule writes all given days in one statement keyed by (user_id, day).
func (db *DB) UpsertSchedule(ctx context.Context, userID uuid.UUID, days []models.DaySchedule) error {
	if len(days) == 0 {
		return nil
	}

	query := `INSERT INTO weekly_schedule (user_id, day, name, workout_type, workout_id, cardio_goal_type, distance, target_time) VALUES `
	args := make([]any, 0, len(days)*8)
	valueStrings := make([]string, 0, len(days))

	for i, d := range days {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		var goal *string
		if d.CardioGoalType != nil {
			g := string(*d.CardioGoalType)
			goal = &g
		}
		args = append(args, userID, d.Day, d.Name, string(d.WorkoutType), d.WorkoutID, goal, d.Distance, d.TargetTimeMinutes)
	}

	query += strings.Join(valueStrings, ",") + `
		ON CONFLICT (user_id, day) DO UPDATE SET
			name = EXCLUDED.name,
			workout_type = EXCLUDED.workout_type,
			workout_id = EXCLUDED.workout_id,
			cardio_goal_type = EXCLUDED.cardio_goal_type,
			distance = EXCLUDED.distance,
			target_time = EXCLUDED.target_time`

	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting schedule: %w", err)
	}
	return nil
}
