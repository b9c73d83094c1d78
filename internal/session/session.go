// Package session implements the workout session lifecycle of one user: start
// a template, log sets with a rest countdown, save with an intensity rating.
//
// The phase is a tagged variant. Idle is the only phase with a Start method, so
// an in-progress session cannot be started again. The in-progress phase owns
// its elapsed stopwatch and rest countdown and stops both when it ends.
package session

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/timer"
	"github.com/google/uuid"
)

var (
	ErrSessionInProgress    = errors.New("a workout session is already in progress")
	ErrNoSession            = errors.New("no workout session in progress")
	ErrAwaitingIntensity    = errors.New("session is waiting for an intensity rating")
	ErrNotAwaitingIntensity = errors.New("session is not waiting for an intensity rating")
	ErrInvalidIntensity     = errors.New("intensity must be between 1 and 4")
	ErrSetNotFound          = errors.New("no such exercise or set in the session")
)

// Phase names reported in snapshots.
const (
	PhaseIdle       = "idle"
	PhaseInProgress = "in_progress"
	PhaseCompleting = "completing"
)

// ActiveSet is a set template being performed. AchievedReps and AchievedLoad
// hold the raw user input; LoadHint is the last achieved load shown as a placeholder.
type ActiveSet struct {
	models.SetTemplate
	SetNumber    int      `json:"set_number"`
	LoadHint     *float64 `json:"load_hint,omitempty"`
	AchievedReps string   `json:"achieved_reps"`
	AchievedLoad string   `json:"achieved_load"`
	Completed    bool     `json:"completed"`
}

// ActiveExercise is an exercise of the running session.
type ActiveExercise struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Notes string      `json:"notes,omitempty"`
	Sets  []ActiveSet `json:"sets"`
}

// ActiveSession is the mutable copy of a template while it is performed.
type ActiveSession struct {
	TemplateID   uuid.UUID        `json:"template_id"`
	TemplateName string           `json:"template_name"`
	Exercises    []ActiveExercise `json:"exercises"`
	StartedAt    time.Time        `json:"started_at"`
}

func (s *ActiveSession) clone() *ActiveSession {
	c := *s
	c.Exercises = make([]ActiveExercise, len(s.Exercises))
	for i, ex := range s.Exercises {
		ex.Sets = append([]ActiveSet(nil), ex.Sets...)
		c.Exercises[i] = ex
	}
	return &c
}

func (s *ActiveSession) set(ex, set int) (*ActiveExercise, *ActiveSet, error) {
	if ex < 0 || ex >= len(s.Exercises) {
		return nil, nil, ErrSetNotFound
	}
	e := &s.Exercises[ex]
	if set < 0 || set >= len(e.Sets) {
		return nil, nil, ErrSetNotFound
	}
	return e, &e.Sets[set], nil
}

// expand turns template exercises into active exercises. Warm-up sets are
// placed before work sets keeping their authored order, and each kind is
// numbered from 1.
func expand(exercises []models.Exercise) []ActiveExercise {
	out := make([]ActiveExercise, 0, len(exercises))
	for _, ex := range exercises {
		ae := ActiveExercise{
			ID:    ex.ID,
			Name:  ex.Name,
			Notes: ex.Notes,
			Sets:  make([]ActiveSet, 0, len(ex.Sets)),
		}
		for _, kind := range []models.SetKind{models.SetKindWarmup, models.SetKindWork} {
			n := 0
			for _, st := range ex.Sets {
				if st.Kind != kind {
					continue
				}
				n++
				as := ActiveSet{SetTemplate: st, SetNumber: n}
				if st.LastAchievedLoad != nil {
					v := *st.LastAchievedLoad
					as.LoadHint = &v
				}
				ae.Sets = append(ae.Sets, as)
			}
		}
		out = append(out, ae)
	}
	return out
}

// Idle is the phase without a session.
type Idle struct{}

// Start expands tmpl into a new in-progress phase and starts its stopwatch.
func (Idle) Start(tmpl *models.WorkoutTemplate, now time.Time, interval time.Duration, onRestDone func(string)) *InProgress {
	p := &InProgress{
		session: ActiveSession{
			TemplateID:   tmpl.ID,
			TemplateName: tmpl.Name,
			Exercises:    expand(tmpl.Exercises),
			StartedAt:    now,
		},
		elapsed: timer.NewStopwatch(interval),
		rest:    timer.NewCountdown(interval, onRestDone),
	}
	p.elapsed.Start()
	return p
}

// InProgress is the phase with a running session. AwaitingIntensity marks the
// completing step between a save request and its confirmation.
type InProgress struct {
	session           ActiveSession
	elapsed           *timer.Stopwatch
	rest              *timer.Countdown
	awaitingIntensity bool
}

// ToggleSet flips a set's completion. Completing a set (re)starts the rest
// countdown with the set's rest duration; un-completing leaves the countdown alone.
func (p *InProgress) ToggleSet(ex, set int) error {
	if p.awaitingIntensity {
		return ErrAwaitingIntensity
	}
	e, s, err := p.session.set(ex, set)
	if err != nil {
		return err
	}
	s.Completed = !s.Completed
	if s.Completed {
		p.rest.Start(s.EffectiveRest(), e.Name)
	}
	return nil
}

// UpdateSet stores the raw reps and load entered for a set.
func (p *InProgress) UpdateSet(ex, set int, reps, load string) error {
	if p.awaitingIntensity {
		return ErrAwaitingIntensity
	}
	_, s, err := p.session.set(ex, set)
	if err != nil {
		return err
	}
	s.AchievedReps = reps
	s.AchievedLoad = load
	return nil
}

// StopRest stops the rest countdown.
func (p *InProgress) StopRest() {
	p.rest.Stop()
}

// RequestSave enters the completing step.
func (p *InProgress) RequestSave() {
	p.awaitingIntensity = true
}

// CancelSave leaves the completing step without saving.
func (p *InProgress) CancelSave() error {
	if !p.awaitingIntensity {
		return ErrNotAwaitingIntensity
	}
	p.awaitingIntensity = false
	return nil
}

// teardown stops both clocks and waits for their goroutines.
func (p *InProgress) teardown() {
	p.rest.Stop()
	p.elapsed.Stop()
}

// Record builds the strength record for the session and the loads to write
// back into the template, keyed by set template ID.
func (p *InProgress) Record(intensity int, now time.Time) (*models.WorkoutSessionRecord, map[uuid.UUID]float64) {
	details := &models.StrengthDetails{
		Exercises:      make([]models.ExerciseResult, 0, len(p.session.Exercises)),
		TotalExercises: len(p.session.Exercises),
	}
	loads := make(map[uuid.UUID]float64)

	for _, ex := range p.session.Exercises {
		res := models.ExerciseResult{
			Name:      ex.Name,
			Completed: exerciseCompleted(ex),
			Sets:      make([]models.SetResult, 0, len(ex.Sets)),
		}
		if res.Completed {
			details.ExercisesCompleted++
		}
		for _, s := range ex.Sets {
			sr := models.SetResult{
				Kind:            s.Kind,
				SetNumber:       s.SetNumber,
				TargetReps:      s.TargetReps,
				TargetIntensity: s.TargetIntensity,
				Completed:       s.Completed,
			}
			if reps, err := strconv.Atoi(strings.TrimSpace(s.AchievedReps)); err == nil {
				sr.AchievedReps = &reps
			}
			if load, ok := parseLoad(s.AchievedLoad); ok {
				sr.AchievedLoad = &load
				if load > 0 && s.ID != uuid.Nil {
					loads[s.ID] = load
				}
			}
			res.Sets = append(res.Sets, sr)
		}
		details.Exercises = append(details.Exercises, res)
	}
	if details.TotalExercises > 0 {
		details.CompletionRatio = float64(details.ExercisesCompleted) / float64(details.TotalExercises)
	}

	return &models.WorkoutSessionRecord{
		Name:            p.session.TemplateName,
		Type:            models.SessionTypeStrength,
		DurationSeconds: p.elapsed.Elapsed(),
		Week:            models.ISOWeek(now),
		Intensity:       &intensity,
		Details:         details,
		CompletedAt:     now,
	}, loads
}

// exerciseCompleted reports whether ex has at least one set and every set is completed.
func exerciseCompleted(ex ActiveExercise) bool {
	if len(ex.Sets) == 0 {
		return false
	}
	for _, s := range ex.Sets {
		if !s.Completed {
			return false
		}
	}
	return true
}

// parseLoad accepts both "62.5" and "62,5".
func parseLoad(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
