package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/fitlog/internal/cardio"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
	"github.com/claude/fitlog/internal/timer"
	"github.com/google/uuid"
)

// Store is the persistence the controller needs. *storage.DB satisfies it.
type Store interface {
	GetSchedule(ctx context.Context, userID uuid.UUID) ([]models.DaySchedule, error)
	GetTemplate(ctx context.Context, userID, id uuid.UUID) (*models.WorkoutTemplate, error)
	CompleteSession(ctx context.Context, rec *models.WorkoutSessionRecord, templateID uuid.UUID, loads map[uuid.UUID]float64) error
	InsertSession(ctx context.Context, rec *models.WorkoutSessionRecord) (bool, error)
}

// Recorder receives lifecycle events, typically for metrics.
type Recorder interface {
	SessionStarted()
	SessionSaved(t models.SessionType)
	SessionCancelled()
	RestFinished()
}

// Options configures a Controller. Zero values select production defaults.
type Options struct {
	TickInterval time.Duration
	Now          func() time.Time
	Log          *slog.Logger
	Recorder     Recorder
}

// phase is either Idle or *InProgress.
type phase interface {
	name() string
}

func (Idle) name() string { return PhaseIdle }

func (p *InProgress) name() string {
	if p.awaitingIntensity {
		return PhaseCompleting
	}
	return PhaseInProgress
}

// Controller owns the session lifecycle of one user. All transitions are
// serialised by its mutex.
type Controller struct {
	userID   uuid.UUID
	store    Store
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger
	rec      Recorder

	mu    sync.Mutex
	phase phase
}

// NewController returns an idle controller for userID.
func NewController(userID uuid.UUID, store Store, opts Options) *Controller {
	c := &Controller{
		userID:   userID,
		store:    store,
		interval: opts.TickInterval,
		now:      opts.Now,
		log:      opts.Log,
		rec:      opts.Recorder,
		phase:    Idle{},
	}
	if c.interval <= 0 {
		c.interval = timer.DefaultInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// DayKind is what today's schedule resolves to.
type DayKind string

const (
	DayStrength    DayKind = "strength"
	DayCardio      DayKind = "cardio"
	DayRest        DayKind = "rest"
	DayUnscheduled DayKind = "unscheduled"
)

// TodayView is the idle screen: today's plan resolved against the stored templates.
type TodayView struct {
	Date       string                  `json:"date"`
	Kind       DayKind                 `json:"kind"`
	Schedule   models.DaySchedule      `json:"schedule"`
	Template   *models.WorkoutTemplate `json:"template,omitempty"`
	TargetPace string                  `json:"target_pace,omitempty"`
	InProgress bool                    `json:"in_progress"`
}

// Today resolves the schedule entry for now's weekday. A strength day whose
// template is unset or no longer exists resolves to DayUnscheduled.
func (c *Controller) Today(ctx context.Context, now time.Time) (*TodayView, error) {
	week, err := c.store.GetSchedule(ctx, c.userID)
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	day := dayOf(week, now.Weekday())

	view := &TodayView{
		Date:     now.Format("2006-01-02"),
		Schedule: day,
	}
	c.mu.Lock()
	_, view.InProgress = c.phase.(*InProgress)
	c.mu.Unlock()

	switch day.WorkoutType {
	case models.WorkoutTypeStrength:
		if day.WorkoutID == nil {
			view.Kind = DayUnscheduled
			return view, nil
		}
		tmpl, err := c.store.GetTemplate(ctx, c.userID, *day.WorkoutID)
		if errors.Is(err, storage.ErrNotFound) {
			view.Kind = DayUnscheduled
			return view, nil
		}
		if err != nil {
			return nil, fmt.Errorf("loading template %s: %w", *day.WorkoutID, err)
		}
		view.Kind = DayStrength
		view.Template = tmpl
	case models.WorkoutTypeCardio:
		view.Kind = DayCardio
		if day.Distance != nil && day.TargetTimeMinutes != nil {
			view.TargetPace, _ = cardio.Pace(*day.Distance, *day.TargetTimeMinutes)
		}
	default:
		view.Kind = DayRest
	}
	return view, nil
}

func dayOf(week []models.DaySchedule, wd time.Weekday) models.DaySchedule {
	for _, d := range week {
		if d.Day == int(wd) {
			return d
		}
	}
	return models.DefaultWeek()[wd]
}

// Start loads the template and begins a session.
// Returns ErrSessionInProgress unless the controller is idle.
func (c *Controller) Start(ctx context.Context, templateID uuid.UUID) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idle, ok := c.phase.(Idle)
	if !ok {
		return Snapshot{}, ErrSessionInProgress
	}
	tmpl, err := c.store.GetTemplate(ctx, c.userID, templateID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading template %s: %w", templateID, err)
	}

	p := idle.Start(tmpl, c.now(), c.interval, c.restDone)
	c.phase = p
	if c.rec != nil {
		c.rec.SessionStarted()
	}
	c.log.Info("workout started", "user", c.userID, "template", tmpl.Name, "exercises", len(p.session.Exercises))
	return c.snapshotLocked(), nil
}

func (c *Controller) restDone(label string) {
	if c.rec != nil {
		c.rec.RestFinished()
	}
	c.log.Debug("rest finished", "user", c.userID, "exercise", label)
}

// inProgress runs fn on the in-progress phase and returns the resulting snapshot.
func (c *Controller) inProgress(fn func(p *InProgress) error) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.phase.(*InProgress)
	if !ok {
		return Snapshot{}, ErrNoSession
	}
	if err := fn(p); err != nil {
		return Snapshot{}, err
	}
	return c.snapshotLocked(), nil
}

// ToggleSet flips the completion of set setIdx of exercise exIdx.
func (c *Controller) ToggleSet(exIdx, setIdx int) (Snapshot, error) {
	return c.inProgress(func(p *InProgress) error { return p.ToggleSet(exIdx, setIdx) })
}

// UpdateSet stores the raw achieved reps and load of a set.
func (c *Controller) UpdateSet(exIdx, setIdx int, reps, load string) (Snapshot, error) {
	return c.inProgress(func(p *InProgress) error { return p.UpdateSet(exIdx, setIdx, reps, load) })
}

// StopRest stops the rest countdown.
func (c *Controller) StopRest() (Snapshot, error) {
	return c.inProgress(func(p *InProgress) error {
		p.StopRest()
		return nil
	})
}

// RequestSave asks for an intensity rating before the session is stored.
func (c *Controller) RequestSave() (Snapshot, error) {
	return c.inProgress(func(p *InProgress) error {
		p.RequestSave()
		return nil
	})
}

// CancelSave returns from the rating prompt to the running session.
func (c *Controller) CancelSave() (Snapshot, error) {
	return c.inProgress(func(p *InProgress) error { return p.CancelSave() })
}

// ConfirmSave stores the session with the given intensity and writes achieved
// loads back to the template. On failure the session stays as it was.
func (c *Controller) ConfirmSave(ctx context.Context, intensity int) (*models.WorkoutSessionRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.phase.(*InProgress)
	if !ok {
		return nil, ErrNoSession
	}
	if !p.awaitingIntensity {
		return nil, ErrNotAwaitingIntensity
	}
	if !models.ValidIntensity(intensity) {
		return nil, ErrInvalidIntensity
	}

	rec, loads := p.Record(intensity, c.now())
	rec.UserID = c.userID
	if err := c.store.CompleteSession(ctx, rec, p.session.TemplateID, loads); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	p.teardown()
	c.phase = Idle{}
	if c.rec != nil {
		c.rec.SessionSaved(models.SessionTypeStrength)
	}
	c.log.Info("workout saved", "user", c.userID, "name", rec.Name,
		"duration_sec", rec.DurationSeconds, "intensity", intensity, "loads_updated", len(loads))
	return rec, nil
}

// Cancel discards the running session without a record.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.phase.(*InProgress)
	if !ok {
		return ErrNoSession
	}
	p.teardown()
	c.phase = Idle{}
	if c.rec != nil {
		c.rec.SessionCancelled()
	}
	c.log.Info("workout cancelled", "user", c.userID, "template", p.session.TemplateName)
	return nil
}

// SaveCardio logs a cardio workout in one step. Blank values are filled from
// today's schedule target when the day fixes that dimension.
// It does not interact with a running strength session.
func (c *Controller) SaveCardio(ctx context.Context, in cardio.Input) (*models.WorkoutSessionRecord, error) {
	now := c.now()
	week, err := c.store.GetSchedule(ctx, c.userID)
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	in = cardio.Resolve(in, dayOf(week, now.Weekday()))

	rec, err := cardio.Build(in, now)
	if err != nil {
		return nil, err
	}
	rec.UserID = c.userID
	if _, err := c.store.InsertSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving cardio session: %w", err)
	}
	if c.rec != nil {
		c.rec.SessionSaved(models.SessionTypeCardio)
	}
	c.log.Info("cardio saved", "user", c.userID, "name", rec.Name, "duration_sec", rec.DurationSeconds)
	return rec, nil
}

// RestState is the running rest countdown.
type RestState struct {
	RemainingSeconds int    `json:"remaining_seconds"`
	Label            string `json:"label"`
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	Phase          string         `json:"phase"`
	Session        *ActiveSession `json:"session,omitempty"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Rest           *RestState     `json:"rest,omitempty"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{Phase: c.phase.name()}
	p, ok := c.phase.(*InProgress)
	if !ok {
		return snap
	}
	snap.Session = p.session.clone()
	snap.ElapsedSeconds = p.elapsed.Elapsed()
	if secs, label, running := p.rest.Remaining(); running {
		snap.Rest = &RestState{RemainingSeconds: secs, Label: label}
	}
	return snap
}

// Active reports whether a session is in progress.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.phase.(*InProgress)
	return ok
}

// Shutdown stops the clocks of a running session. The session itself is kept
// so its state can still be read.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.phase.(*InProgress); ok {
		p.teardown()
	}
}
