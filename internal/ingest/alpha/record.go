package alpha

import (
	"github.com/claude/fitlog/internal/models"
)

// Record converts an imported session into a strength history record.
// Every imported set counts as completed; imports carry no intensity rating.
func Record(s Session) models.WorkoutSessionRecord {
	details := &models.StrengthDetails{
		Exercises:      make([]models.ExerciseResult, 0, len(s.Exercises)),
		TotalExercises: len(s.Exercises),
	}

	for _, ex := range s.Exercises {
		res := models.ExerciseResult{
			Name:      ex.Name,
			Completed: len(ex.Sets) > 0,
			Sets:      make([]models.SetResult, 0, len(ex.Sets)),
		}
		for _, st := range ex.Sets {
			kind := models.SetKindWork
			if st.IsWarmup {
				kind = models.SetKindWarmup
			}
			reps := st.Reps
			load := st.WeightKg
			res.Sets = append(res.Sets, models.SetResult{
				Kind:         kind,
				SetNumber:    st.Number,
				TargetReps:   ex.TargetReps,
				AchievedReps: &reps,
				AchievedLoad: &load,
				Completed:    true,
			})
		}
		if res.Completed {
			details.ExercisesCompleted++
		}
		details.Exercises = append(details.Exercises, res)
	}
	if details.TotalExercises > 0 {
		details.CompletionRatio = float64(details.ExercisesCompleted) / float64(details.TotalExercises)
	}

	return models.WorkoutSessionRecord{
		Name:            s.Name,
		Type:            models.SessionTypeStrength,
		DurationSeconds: parseDuration(s.Duration),
		Week:            models.ISOWeek(s.Date),
		Details:         details,
		CompletedAt:     s.Date,
	}
}
