package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
)

// Source is the import_logs source name of this importer.
const Source = "alpha"

// Store is the persistence an import needs. *storage.DB satisfies it.
type Store interface {
	InsertSessions(ctx context.Context, recs []models.WorkoutSessionRecord) (int64, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
}

// Provider imports Alpha Progression exports.
type Provider struct {
	db  Store
	log *slog.Logger
}

// NewProvider creates a new Alpha Progression import provider.
func NewProvider(db Store, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log}
}

// Ingest parses an export and stores its sessions. Sessions already stored
// (same name and start time) are skipped, so re-importing an export is safe.
// The outcome is written to the import log either way.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID uuid.UUID) (*ingest.Result, error) {
	start := time.Now()
	result, err := p.ingest(ctx, r, userID)
	p.logImport(ctx, userID, result, err, start)
	return result, err
}

func (p *Provider) ingest(ctx context.Context, r io.Reader, userID uuid.UUID) (*ingest.Result, error) {
	result := &ingest.Result{}

	sessions, err := Parse(r)
	if err != nil {
		return result, &ingest.ParseError{Err: err}
	}

	recs := make([]models.WorkoutSessionRecord, 0, len(sessions))
	for _, s := range sessions {
		rec := Record(s)
		rec.UserID = userID
		recs = append(recs, rec)
		for _, ex := range s.Exercises {
			result.SetsReceived += len(ex.Sets)
		}
	}
	result.SessionsReceived = len(recs)
	if len(recs) == 0 {
		result.Message = "no sessions found"
		return result, nil
	}

	inserted, err := p.db.InsertSessions(ctx, recs)
	if err != nil {
		return result, fmt.Errorf("inserting sessions: %w", err)
	}
	result.SessionsInserted = inserted
	result.SessionsSkipped = int64(len(recs)) - inserted
	return result, nil
}

func (p *Provider) logImport(ctx context.Context, userID uuid.UUID, result *ingest.Result, importErr error, start time.Time) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}
	durationMs := int(time.Since(start).Milliseconds())

	entry := storage.ImportLog{
		UserID:           userID,
		Source:           Source,
		Status:           status,
		SessionsReceived: result.SessionsReceived,
		SessionsInserted: result.SessionsInserted,
		SetsReceived:     result.SetsReceived,
		DurationMs:       &durationMs,
		ErrorMessage:     errMsg,
	}

	// The request may already be cancelled; the log entry should still land.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := p.db.InsertImportLog(logCtx, entry); err != nil {
		p.log.Error("failed to log import", "source", Source, "error", err)
	}
}
