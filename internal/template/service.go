package template

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence the service needs. *storage.DB satisfies it.
type Store interface {
	ListTemplates(ctx context.Context, userID uuid.UUID) ([]models.WorkoutTemplate, error)
	GetTemplate(ctx context.Context, userID, id uuid.UUID) (*models.WorkoutTemplate, error)
	CreateTemplate(ctx context.Context, t *models.WorkoutTemplate) error
	ReplaceTemplate(ctx context.Context, t *models.WorkoutTemplate) error
	DeleteTemplate(ctx context.Context, userID, id uuid.UUID) error
}

// Service validates and stores templates of any user.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates a template service.
func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// List returns the user's templates.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.WorkoutTemplate, error) {
	return s.store.ListTemplates(ctx, userID)
}

// Get returns one template.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.WorkoutTemplate, error) {
	return s.store.GetTemplate(ctx, userID, id)
}

// Create validates t, assigns ids and stores it for userID.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, t *models.WorkoutTemplate) error {
	t.ID = uuid.Nil
	t.UserID = userID
	AssignIDs(t)
	if err := Validate(t); err != nil {
		return err
	}
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return err
	}
	s.log.Info("template created", "user", userID, "template", t.ID, "exercises", len(t.Exercises))
	return nil
}

// Replace overwrites the name and exercise list of template id. Sets that keep
// their id but omit last_achieved_load keep the stored value.
func (s *Service) Replace(ctx context.Context, userID, id uuid.UUID, t *models.WorkoutTemplate) error {
	prev, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return err
	}
	t.ID = id
	t.UserID = userID
	AssignIDs(t)
	carryLoads(prev.Exercises, t.Exercises)
	if err := Validate(t); err != nil {
		return err
	}
	return s.store.ReplaceTemplate(ctx, t)
}

// Delete removes a template.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.DeleteTemplate(ctx, userID, id); err != nil {
		return err
	}
	s.log.Info("template deleted", "user", userID, "template", id)
	return nil
}

// Edit loads template id, applies fn and saves the result as a full replace.
func (s *Service) Edit(ctx context.Context, userID, id uuid.UUID, fn func(t *models.WorkoutTemplate) error) (*models.WorkoutTemplate, error) {
	t, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	AssignIDs(t)
	if err := Validate(t); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("saving template %s: %w", id, err)
	}
	return t, nil
}
