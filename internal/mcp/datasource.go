package mcp

import (
	"context"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/session"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both DBSource (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Today(ctx context.Context, userID uuid.UUID, now time.Time) (*session.TodayView, error)
	GetSchedule(ctx context.Context, userID uuid.UUID) ([]models.DaySchedule, error)
	ListTemplates(ctx context.Context, userID uuid.UUID) ([]models.WorkoutTemplate, error)
	QuerySessions(ctx context.Context, userID uuid.UUID, q storage.SessionQuery) ([]models.WorkoutSessionRecord, error)
	GetTrainingSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string) ([]storage.TrainingSummaryPeriod, error)
	GetTrainingIntensity(ctx context.Context, userID uuid.UUID, start, end time.Time) (*storage.TrainingIntensityResult, error)
	QueryMeasurements(ctx context.Context, userID uuid.UUID, start, end time.Time, limit int) ([]models.BodyMeasurement, error)
	GetDataStats(ctx context.Context, userID uuid.UUID) (*storage.DataStats, error)
}

// DBSource reads straight from the database.
type DBSource struct {
	*storage.DB
}

// Compile-time check: DBSource satisfies DataSource.
var _ DataSource = DBSource{}

// Today resolves today's plan with a throwaway idle controller. No timers are
// started, so nothing needs to be shut down.
func (s DBSource) Today(ctx context.Context, userID uuid.UUID, now time.Time) (*session.TodayView, error) {
	return session.NewController(userID, s.DB, session.Options{}).Today(ctx, now)
}
