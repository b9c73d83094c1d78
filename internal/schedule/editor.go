// Package schedule holds the weekly schedule of a user and its edit cycle.
//
// Outside edit mode the editor shows the persisted week. Begin copies it into
// a working copy that the Set* methods change; Cancel drops the working copy
// and Save writes it in one upsert and adopts what the database returns.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/fitlog/internal/cardio"
	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotEditing = errors.New("schedule is not in edit mode")
	ErrInvalidDay = errors.New("day must be between 0 (Sunday) and 6 (Saturday)")
)

// Store is the persistence the editor needs. *storage.DB satisfies it.
type Store interface {
	GetSchedule(ctx context.Context, userID uuid.UUID) ([]models.DaySchedule, error)
	UpsertSchedule(ctx context.Context, userID uuid.UUID, days []models.DaySchedule) error
}

// View is what the editor currently shows.
type View struct {
	Editing bool                 `json:"editing"`
	Days    []models.DaySchedule `json:"days"`
}

// Editor owns the schedule edit cycle of one user.
type Editor struct {
	userID uuid.UUID
	store  Store
	log    *slog.Logger

	mu        sync.Mutex
	persisted []models.DaySchedule
	working   []models.DaySchedule
}

// NewEditor returns an editor that loads the schedule on first use.
func NewEditor(userID uuid.UUID, store Store, log *slog.Logger) *Editor {
	if log == nil {
		log = slog.Default()
	}
	return &Editor{userID: userID, store: store, log: log}
}

// View returns the working copy while editing, otherwise the persisted week.
func (e *Editor) View(ctx context.Context) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLoaded(ctx); err != nil {
		return View{}, err
	}
	return e.viewLocked(), nil
}

// Reload re-reads the persisted week. A working copy is left untouched.
func (e *Editor) Reload(ctx context.Context) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return View{}, err
	}
	return e.viewLocked(), nil
}

// TemplateDeleted unassigns template id from the working copy and re-reads the
// persisted week, where the database has already cleared it.
func (e *Editor) TemplateDeleted(ctx context.Context, id uuid.UUID) (View, error) {
	e.mu.Lock()
	for i := range e.working {
		if w := e.working[i].WorkoutID; w != nil && *w == id {
			e.working[i].WorkoutID = nil
		}
	}
	e.mu.Unlock()
	return e.Reload(ctx)
}

// Begin enters edit mode. Calling it while editing keeps the current working copy.
func (e *Editor) Begin(ctx context.Context) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLoaded(ctx); err != nil {
		return View{}, err
	}
	if e.working == nil {
		e.working = cloneWeek(e.persisted)
	}
	return e.viewLocked(), nil
}

// SetWorkoutType changes a day's activity. Switching to strength clears the
// cardio goal, distance and target time; switching to cardio or rest clears
// the workout.
func (e *Editor) SetWorkoutType(day int, t models.WorkoutType) (View, error) {
	return e.edit(day, func(d *models.DaySchedule) error {
		if !t.Valid() {
			return fieldError("workout_type", "must be strength, cardio or rest")
		}
		d.WorkoutType = t
		d.Normalize()
		return nil
	})
}

// SetName renames a day.
func (e *Editor) SetName(day int, name string) (View, error) {
	return e.edit(day, func(d *models.DaySchedule) error {
		d.Name = name
		return nil
	})
}

// SetWorkout assigns a template to a strength day. A nil id unassigns it.
func (e *Editor) SetWorkout(day int, id *uuid.UUID) (View, error) {
	return e.edit(day, func(d *models.DaySchedule) error {
		if d.WorkoutType != models.WorkoutTypeStrength {
			return fieldError("workout_id", "only strength days have a workout")
		}
		d.WorkoutID = id
		return nil
	})
}

// SetCardio sets the cardio goal and targets of a cardio day.
func (e *Editor) SetCardio(day int, goal *models.CardioGoalType, distance, targetMinutes *float64) (View, error) {
	return e.edit(day, func(d *models.DaySchedule) error {
		if d.WorkoutType != models.WorkoutTypeCardio {
			return fieldError("cardio_goal_type", "only cardio days have a cardio goal")
		}
		verr := &models.ValidationError{}
		if goal != nil && *goal != models.CardioGoalDistance && *goal != models.CardioGoalTime {
			verr.Add("cardio_goal_type", "must be distance or time")
		}
		if distance != nil && (*distance < 0 || *distance > cardio.MaxDistance) {
			verr.Add("distance", fmt.Sprintf("must be between 0 and %d", cardio.MaxDistance))
		}
		if targetMinutes != nil && (*targetMinutes < 0 || *targetMinutes > cardio.MaxMinutes) {
			verr.Add("target_time", fmt.Sprintf("must be between 0 and %d", cardio.MaxMinutes))
		}
		if err := verr.Err(); err != nil {
			return err
		}
		d.CardioGoalType = goal
		d.Distance = distance
		d.TargetTimeMinutes = targetMinutes
		return nil
	})
}

// Cancel leaves edit mode and discards the working copy.
func (e *Editor) Cancel() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working = nil
	return e.viewLocked()
}

// Save writes the working copy and adopts the re-read result as the persisted
// week. On a failed write the editor stays in edit mode.
func (e *Editor) Save(ctx context.Context) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.working == nil {
		return View{}, ErrNotEditing
	}
	return e.saveLocked(ctx, e.working)
}

// Replace writes a complete week in one step, bypassing edit mode. Any working
// copy is discarded once the write succeeds.
func (e *Editor) Replace(ctx context.Context, days []models.DaySchedule) (View, error) {
	week, err := normalizeWeek(days)
	if err != nil {
		return View{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked(ctx, week)
}

func (e *Editor) saveLocked(ctx context.Context, days []models.DaySchedule) (View, error) {
	for i := range days {
		days[i].Normalize()
	}
	if err := e.store.UpsertSchedule(ctx, e.userID, days); err != nil {
		return View{}, fmt.Errorf("saving schedule: %w", err)
	}
	e.working = nil
	if err := e.load(ctx); err != nil {
		e.persisted = nil
		return View{}, fmt.Errorf("re-reading saved schedule: %w", err)
	}
	e.log.Info("schedule saved", "user", e.userID)
	return e.viewLocked(), nil
}

func (e *Editor) edit(day int, fn func(d *models.DaySchedule) error) (View, error) {
	if day < 0 || day >= models.DaysInWeek {
		return View{}, ErrInvalidDay
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.working == nil {
		return View{}, ErrNotEditing
	}
	d := e.working[day]
	if err := fn(&d); err != nil {
		return View{}, err
	}
	e.working[day] = d
	return e.viewLocked(), nil
}

func (e *Editor) ensureLoaded(ctx context.Context) error {
	if e.persisted != nil {
		return nil
	}
	return e.load(ctx)
}

func (e *Editor) load(ctx context.Context) error {
	days, err := e.store.GetSchedule(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("loading schedule: %w", err)
	}
	week, err := normalizeWeek(days)
	if err != nil {
		return err
	}
	e.persisted = week
	return nil
}

func (e *Editor) viewLocked() View {
	if e.working != nil {
		return View{Editing: true, Days: cloneWeek(e.working)}
	}
	return View{Days: cloneWeek(e.persisted)}
}

// normalizeWeek orders days by weekday and fills missing days with default
// rest days. Days outside 0..6 or given twice are rejected.
func normalizeWeek(days []models.DaySchedule) ([]models.DaySchedule, error) {
	week := models.DefaultWeek()
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d.Day < 0 || d.Day >= models.DaysInWeek {
			return nil, ErrInvalidDay
		}
		if seen[d.Day] {
			return nil, fieldError("day", fmt.Sprintf("day %d given more than once", d.Day))
		}
		if !d.WorkoutType.Valid() {
			return nil, fieldError("workout_type", fmt.Sprintf("day %d: must be strength, cardio or rest", d.Day))
		}
		seen[d.Day] = true
		week[d.Day] = d
	}
	return week, nil
}

func cloneWeek(days []models.DaySchedule) []models.DaySchedule {
	return append([]models.DaySchedule(nil), days...)
}

func fieldError(field, msg string) error {
	verr := &models.ValidationError{}
	verr.Add(field, msg)
	return verr
}
