package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/cardio"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu        sync.Mutex
	schedule  []models.DaySchedule
	templates map[uuid.UUID]*models.WorkoutTemplate
	sessions  []models.WorkoutSessionRecord
	failSave  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedule:  models.DefaultWeek(),
		templates: make(map[uuid.UUID]*models.WorkoutTemplate),
	}
}

func (f *fakeStore) GetSchedule(_ context.Context, _ uuid.UUID) ([]models.DaySchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DaySchedule(nil), f.schedule...), nil
}

func (f *fakeStore) GetTemplate(_ context.Context, _ uuid.UUID, id uuid.UUID) (*models.WorkoutTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeStore) CompleteSession(_ context.Context, rec *models.WorkoutSessionRecord, templateID uuid.UUID, loads map[uuid.UUID]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	f.sessions = append(f.sessions, *rec)
	if t, ok := f.templates[templateID]; ok {
		models.ApplyLoads(t.Exercises, loads)
	}
	return nil
}

func (f *fakeStore) InsertSession(_ context.Context, rec *models.WorkoutSessionRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, *rec)
	return true, nil
}

type countingRecorder struct {
	mu                                 sync.Mutex
	started, saved, cancelled, rested int
}

func (r *countingRecorder) SessionStarted()                 { r.mu.Lock(); r.started++; r.mu.Unlock() }
func (r *countingRecorder) SessionSaved(models.SessionType) { r.mu.Lock(); r.saved++; r.mu.Unlock() }
func (r *countingRecorder) SessionCancelled()               { r.mu.Lock(); r.cancelled++; r.mu.Unlock() }
func (r *countingRecorder) RestFinished()                   { r.mu.Lock(); r.rested++; r.mu.Unlock() }

var (
	testUser = uuid.MustParse("8f14e45f-ceea-467f-a0e6-3b7c2f1c9a10")
	// Wednesday
	testNow = time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC)
)

func newTestController(store Store) (*Controller, *countingRecorder) {
	rec := &countingRecorder{}
	c := NewController(testUser, store, Options{
		TickInterval: time.Hour,
		Now:          func() time.Time { return testNow },
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder:     rec,
	})
	return c, rec
}

func f64(v float64) *float64 { return &v }

// squatTemplate has one exercise with 2 warm-up and 3 work sets authored in
// mixed order.
func squatTemplate() *models.WorkoutTemplate {
	return &models.WorkoutTemplate{
		ID:     uuid.New(),
		UserID: testUser,
		Name:   "Leg day",
		Exercises: []models.Exercise{{
			ID:   uuid.New(),
			Name: "Squat",
			Sets: []models.SetTemplate{
				{ID: uuid.New(), Kind: models.SetKindWarmup, TargetReps: 8},
				{ID: uuid.New(), Kind: models.SetKindWork, TargetReps: 5, LastAchievedLoad: f64(100)},
				{ID: uuid.New(), Kind: models.SetKindWarmup, TargetReps: 5, RestSeconds: 45},
				{ID: uuid.New(), Kind: models.SetKindWork, TargetReps: 5, LastAchievedLoad: f64(100)},
				{ID: uuid.New(), Kind: models.SetKindWork, TargetReps: 5, RestSeconds: 180},
			},
		}},
	}
}

func TestStart_ExpandsAndNumbersSets(t *testing.T) {
	store := newFakeStore()
	tmpl := squatTemplate()
	store.templates[tmpl.ID] = tmpl
	c, rec := newTestController(store)
	defer c.Shutdown()

	snap, err := c.Start(context.Background(), tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseInProgress, snap.Phase)
	assert.Equal(t, 1, rec.started)
	require.NotNil(t, snap.Session)
	require.Len(t, snap.Session.Exercises, 1)

	sets := snap.Session.Exercises[0].Sets
	require.Len(t, sets, 5)
	wantKinds := []models.SetKind{models.SetKindWarmup, models.SetKindWarmup, models.SetKindWork, models.SetKindWork, models.SetKindWork}
	wantNumbers := []int{1, 2, 1, 2, 3}
	for i, s := range sets {
		assert.Equal(t, wantKinds[i], s.Kind, "set %d kind", i)
		assert.Equal(t, wantNumbers[i], s.SetNumber, "set %d number", i)
		assert.False(t, s.Completed)
		assert.Empty(t, s.AchievedLoad)
	}
	// authored order is kept within a kind
	assert.Equal(t, 8, sets[0].TargetReps)
	assert.Equal(t, 45, sets[1].RestSeconds)
	require.NotNil(t, sets[2].LoadHint)
	assert.Equal(t, 100.0, *sets[2].LoadHint)
	assert.Nil(t, sets[4].LoadHint)
	assert.Equal(t, 0, snap.ElapsedSeconds)
}

func TestStart_RejectsSecondSession(t *testing.T) {
	store := newFakeStore()
	tmpl := squatTemplate()
	store.templates[tmpl.ID] = tmpl
	c, _ := newTestController(store)
	defer c.Shutdown()

	_, err := c.Start(context.Background(), tmpl.ID)
	require.NoError(t, err)
	_, err = c.Start(context.Background(), tmpl.ID)
	assert.ErrorIs(t, err, ErrSessionInProgress)
}

func TestStart_UnknownTemplate(t *testing.T) {
	c, _ := newTestController(newFakeStore())
	_, err := c.Start(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestToggleSet_RestTimer(t *testing.T) {
	store := newFakeStore()
	tmpl := squatTemplate()
	store.templates[tmpl.ID] = tmpl
	c, _ := newTestController(store)
	defer c.Shutdown()

	_, err := c.Start(context.Background(), tmpl.ID)
	require.NoError(t, err)

	// warm-up set without rest configured: 60s default
	snap, err := c.ToggleSet(0, 0)
	require.NoError(t, err)
	require.NotNil(t, snap.Rest)
	assert.Equal(t, 60, snap.Rest.RemainingSeconds)
	assert.Equal(t, "Squat", snap.Rest.Label)

	// completing a work set supersedes with the 90s default
	snap, err = c.ToggleSet(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 90, snap.Rest.RemainingSeconds)

	c.phase.(*InProgress).rest.Tick()

	// un-completing never touches the countdown
	snap, err = c.ToggleSet(0, 0)
	require.NoError(t, err)
	assert.False(t, snap.Session.Exercises[0].Sets[0].Completed)
	assert.Equal(t, 89, snap.Rest.RemainingSeconds)

	// configured rest is used
	snap, err = c.ToggleSet(0, 4)
	require.NoError(t, err)
	assert.Equal(t, 180, snap.Rest.RemainingSeconds)

	snap, err = c.StopRest()
	require.NoError(t, err)
	assert.Nil(t, snap.Rest)

	_, err = c.ToggleSet(3, 0)
	assert.ErrorIs(t, err, ErrSetNotFound)
	_, err = c.ToggleSet(0, 9)
	assert.ErrorIs(t, err, ErrSetNotFound)
}

func TestTransitions_RequireSession(t *testing.T) {
	c, _ := newTestController(newFakeStore())

	_, err := c.ToggleSet(0, 0)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = c.RequestSave()
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = c.ConfirmSave(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, c.Cancel(), ErrNoSession)
}

func TestStrengthWorkout_EndToEnd(t *testing.T) {
	store := newFakeStore()
	tmpl := squatTemplate()
	store.templates[tmpl.ID] = tmpl
	c, rec := newTestController(store)
	defer c.Shutdown()

	snap, err := c.Start(context.Background(), tmpl.ID)
	require.NoError(t, err)

	loads := []string{"60", "80", "102.5", "105", "abc"}
	for i := range snap.Session.Exercises[0].Sets {
		_, err := c.UpdateSet(0, i, "5", loads[i])
		require.NoError(t, err)
		_, err = c.ToggleSet(0, i)
		require.NoError(t, err)
	}
	for range 3 {
		c.phase.(*InProgress).elapsed.Tick()
	}

	// confirming before the rating prompt is rejected
	_, err = c.ConfirmSave(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotAwaitingIntensity)

	snap, err = c.RequestSave()
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleting, snap.Phase)

	_, err = c.ToggleSet(0, 0)
	assert.ErrorIs(t, err, ErrAwaitingIntensity)
	_, err = c.ConfirmSave(context.Background(), 5)
	assert.ErrorIs(t, err, ErrInvalidIntensity)

	saved, err := c.ConfirmSave(context.Background(), models.IntensityModerate)
	require.NoError(t, err)

	assert.Equal(t, testUser, saved.UserID)
	assert.Equal(t, "Leg day", saved.Name)
	assert.Equal(t, models.SessionTypeStrength, saved.Type)
	assert.Equal(t, 3, saved.DurationSeconds)
	assert.Equal(t, 10, saved.Week)
	require.NotNil(t, saved.Intensity)
	assert.Equal(t, 2, *saved.Intensity)

	details, ok := saved.Details.(*models.StrengthDetails)
	require.True(t, ok)
	assert.Equal(t, 1, details.ExercisesCompleted)
	assert.Equal(t, 1, details.TotalExercises)
	assert.Equal(t, 1.0, details.CompletionRatio)
	require.Len(t, details.Exercises[0].Sets, 5)
	assert.Nil(t, details.Exercises[0].Sets[4].AchievedLoad)

	// sets in the session order: warm-ups (template 0, 2), work (1, 3, 4)
	got := store.templates[tmpl.ID].Exercises[0].Sets
	assert.Equal(t, 60.0, *got[0].LastAchievedLoad)
	assert.Equal(t, 80.0, *got[2].LastAchievedLoad)
	assert.Equal(t, 102.5, *got[1].LastAchievedLoad)
	assert.Equal(t, 105.0, *got[3].LastAchievedLoad)
	assert.Nil(t, got[4].LastAchievedLoad)

	assert.Len(t, store.sessions, 1)
	assert.Equal(t, 1, rec.saved)

	snap = c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Session)
	assert.Equal(t, 0, snap.ElapsedSeconds)
}

func TestConfirmSave_FailureKeepsSession(t *testing.T) {
	store := newFakeStore()
	tmpl := squatTemplate()
	store.templates[tmpl.ID] = tmpl
	store.failSave = errors.New("connection reset")
	c, _ := newTestController(store)
	defer c.Shutdown()

	_, err := c.Start(context.Background(), tmpl.ID)
	require.NoError(t, err)
	_, err = c.ToggleSet(0, 0)
	require.NoError(t, err)
	_, err = c.RequestSave()
	require.NoError(t, err)

	_, err = c.ConfirmSave(context.Background(), 3)
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, PhaseCompleting, snap.Phase)
	assert.True(t, snap.Session.Exercises[0].Sets[0].Completed)
	assert.Empty(t, store.sessions)

	snap, err = c.CancelSave()
	require.NoError(t, err)
	assert.Equal(t, PhaseInProgress, snap.Phase)
}

func TestCancel_DiscardsSession(t *testing.T) {
	store := newFakeStore()
	tmpl := squatTemplate()
	store.templates[tmpl.ID] = tmpl
	c, rec := newTestController(store)

	_, err := c.Start(context.Background(), tmpl.ID)
	require.NoError(t, err)
	_, err = c.ToggleSet(0, 1)
	require.NoError(t, err)

	require.NoError(t, c.Cancel())
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
	assert.Empty(t, store.sessions)
	assert.Equal(t, 1, rec.cancelled)

	// a new session can start after cancelling
	_, err = c.Start(context.Background(), tmpl.ID)
	require.NoError(t, err)
	require.NoError(t, c.Cancel())
}

func TestExerciseCompleted(t *testing.T) {
	tests := []struct {
		name string
		sets []ActiveSet
		want bool
	}{
		{"no sets", nil, false},
		{"all done", []ActiveSet{{Completed: true}, {Completed: true}}, true},
		{"one open", []ActiveSet{{Completed: true}, {Completed: false}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exerciseCompleted(ActiveExercise{Sets: tt.sets}))
		})
	}
}

func TestRecord_ZeroSetExerciseNeverCompleted(t *testing.T) {
	p := Idle{}.Start(&models.WorkoutTemplate{
		Name: "Mixed",
		Exercises: []models.Exercise{
			{Name: "Plank"},
			{Name: "Row", Sets: []models.SetTemplate{{ID: uuid.New(), Kind: models.SetKindWork}}},
		},
	}, testNow, time.Hour, nil)
	defer p.teardown()

	require.NoError(t, p.ToggleSet(1, 0))
	rec, loads := p.Record(1, testNow)
	d := rec.Details.(*models.StrengthDetails)
	assert.Equal(t, 1, d.ExercisesCompleted)
	assert.Equal(t, 2, d.TotalExercises)
	assert.Equal(t, 0.5, d.CompletionRatio)
	assert.Empty(t, loads)
}

func TestParseLoad(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"62.5", 62.5, true},
		{" 62,5 ", 62.5, true},
		{"0", 0, true},
		{"", 0, false},
		{"heavy", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLoad(tt.in)
		assert.Equal(t, tt.ok, ok, "parseLoad(%q)", tt.in)
		assert.Equal(t, tt.want, got, "parseLoad(%q)", tt.in)
	}
}

func TestToday(t *testing.T) {
	store := newFakeStore()
	tmpl := squatTemplate()
	store.templates[tmpl.ID] = tmpl
	c, _ := newTestController(store)

	wednesday := int(testNow.Weekday())

	view, err := c.Today(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, DayRest, view.Kind)
	assert.Equal(t, "2026-03-04", view.Date)

	id := tmpl.ID
	store.schedule[wednesday] = models.DaySchedule{Day: wednesday, Name: "Legs", WorkoutType: models.WorkoutTypeStrength, WorkoutID: &id}
	view, err = c.Today(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, DayStrength, view.Kind)
	require.NotNil(t, view.Template)
	assert.Equal(t, "Leg day", view.Template.Name)

	missing := uuid.New()
	store.schedule[wednesday].WorkoutID = &missing
	view, err = c.Today(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, DayUnscheduled, view.Kind)
	assert.Nil(t, view.Template)

	goal := models.CardioGoalDistance
	store.schedule[wednesday] = models.DaySchedule{
		Day: wednesday, Name: "Run", WorkoutType: models.WorkoutTypeCardio,
		Distance: f64(5), TargetTimeMinutes: f64(25), CardioGoalType: &goal,
	}
	view, err = c.Today(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, DayCardio, view.Kind)
	assert.Equal(t, "5:00", view.TargetPace)
}

func TestSaveCardio(t *testing.T) {
	store := newFakeStore()
	wednesday := int(testNow.Weekday())
	goal := models.CardioGoalTime
	store.schedule[wednesday] = models.DaySchedule{
		Day: wednesday, Name: "Easy run", WorkoutType: models.WorkoutTypeCardio,
		TargetTimeMinutes: f64(25), CardioGoalType: &goal,
	}
	c, rec := newTestController(store)

	saved, err := c.SaveCardio(context.Background(), cardio.Input{Distance: "5"})
	require.NoError(t, err)
	assert.Equal(t, "Easy run", saved.Name)
	assert.Equal(t, 1500, saved.DurationSeconds)
	assert.Equal(t, &models.CardioDetails{Distance: 5, Pace: "5:00"}, saved.Details)
	assert.Len(t, store.sessions, 1)
	assert.Equal(t, 1, rec.saved)

	_, err = c.SaveCardio(context.Background(), cardio.Input{})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "distance")
	assert.Len(t, store.sessions, 1)
}
