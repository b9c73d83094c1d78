package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/fitlog/internal/backend"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/schedule"
	"github.com/claude/fitlog/internal/session"
	"github.com/claude/fitlog/internal/storage"
	"github.com/claude/fitlog/internal/template"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Anything unknown is a 500
// and gets logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr.Fields})
	case errors.Is(err, session.ErrInvalidIntensity):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": map[string]string{"intensity": err.Error()}})
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, session.ErrSetNotFound),
		errors.Is(err, template.ErrIndex),
		errors.Is(err, schedule.ErrInvalidDay):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, session.ErrSessionInProgress),
		errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrAwaitingIntensity),
		errors.Is(err, session.ErrNotAwaitingIntensity),
		errors.Is(err, schedule.ErrNotEditing):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, backend.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// decodeJSON reads a JSON body into v, writing 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

// parseTimeRange reads start and end as RFC 3339 or dates. Without start the
// range is the last days days; a date-only end includes that whole day.
func parseTimeRange(r *http.Request, now time.Time, days int) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	end = now
	if endStr != "" {
		var dateOnly bool
		end, dateOnly, err = parseTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		if dateOnly {
			end = end.Add(24 * time.Hour)
		}
	}

	if startStr == "" {
		return end.AddDate(0, 0, -days), end, nil
	}
	start, _, err = parseTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	return start, end, nil
}

func parseTime(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err = time.Parse("2006-01-02", s)
	return t, true, err
}

// localNow applies the optional tz query parameter so "today" follows the
// user's calendar rather than the server's.
func (s *Server) localNow(r *http.Request) (time.Time, error) {
	now := s.now()
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		return now, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown time zone %q", tz)
	}
	return now.In(loc), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	now, err := s.localNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	view, err := s.workspaces.Get(uid).Session.Today(r.Context(), now)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Session lifecycle

func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return nil, false
	}
	return s.workspaces.Get(uid).Session, true
}

// respondSnapshot writes the result of a session transition.
func (s *Server) respondSnapshot(w http.ResponseWriter, r *http.Request, snap session.Snapshot, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req struct {
		TemplateID uuid.UUID `json:"template_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TemplateID == uuid.Nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": map[string]string{"template_id": "is required"}})
		return
	}
	snap, err := c.Start(r.Context(), req.TemplateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// setIndexes reads the {ex} and {set} path parameters.
func setIndexes(w http.ResponseWriter, r *http.Request) (ex, set int, ok bool) {
	if ex, ok = intParam(w, r, "ex"); !ok {
		return 0, 0, false
	}
	set, ok = intParam(w, r, "set")
	return ex, set, ok
}

func (s *Server) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	ex, set, ok := setIndexes(w, r)
	if !ok {
		return
	}
	snap, err := c.ToggleSet(ex, set)
	s.respondSnapshot(w, r, snap, err)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	ex, set, ok := setIndexes(w, r)
	if !ok {
		return
	}
	var req struct {
		Reps string `json:"reps"`
		Load string `json:"load"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := c.UpdateSet(ex, set, req.Reps, req.Load)
	s.respondSnapshot(w, r, snap, err)
}

func (s *Server) handleStopRest(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	snap, err := c.StopRest()
	s.respondSnapshot(w, r, snap, err)
}

func (s *Server) handleRequestSave(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	snap, err := c.RequestSave()
	s.respondSnapshot(w, r, snap, err)
}

func (s *Server) handleCancelSave(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	snap, err := c.CancelSave()
	s.respondSnapshot(w, r, snap, err)
}

func (s *Server) handleConfirmSave(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req struct {
		Intensity int `json:"intensity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := c.ConfirmSave(r.Context(), req.Intensity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	if err := c.Cancel(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Schedule

func (s *Server) editor(w http.ResponseWriter, r *http.Request) (*schedule.Editor, bool) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return nil, false
	}
	return s.workspaces.Get(uid).Schedule, true
}

func (s *Server) respondSchedule(w http.ResponseWriter, r *http.Request, view schedule.View, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	view, err := e.View(r.Context())
	s.respondSchedule(w, r, view, err)
}

func (s *Server) handleReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var days []models.DaySchedule
	if !decodeJSON(w, r, &days) {
		return
	}
	view, err := e.Replace(r.Context(), days)
	s.respondSchedule(w, r, view, err)
}

func (s *Server) handleBeginScheduleEdit(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	view, err := e.Begin(r.Context())
	s.respondSchedule(w, r, view, err)
}

func (s *Server) handleCancelScheduleEdit(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Cancel())
}

func (s *Server) handleSaveSchedule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	view, err := e.Save(r.Context())
	s.respondSchedule(w, r, view, err)
}

// dayPatch is a partial update of one working-copy day. Fields are applied in
// the order type, name, workout, cardio so a type switch cascades first.
type dayPatch struct {
	WorkoutType *models.WorkoutType `json:"workout_type"`
	Name        *string             `json:"name"`
	// WorkoutID distinguishes "absent" from an explicit null that unassigns.
	WorkoutID json.RawMessage `json:"workout_id"`
	Cardio    *struct {
		GoalType          *models.CardioGoalType `json:"cardio_goal_type"`
		Distance          *float64               `json:"distance"`
		TargetTimeMinutes *float64               `json:"target_time"`
	} `json:"cardio"`
}

func (s *Server) handleEditScheduleDay(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	day, ok := intParam(w, r, "day")
	if !ok {
		return
	}
	var p dayPatch
	if !decodeJSON(w, r, &p) {
		return
	}

	view, err := applyDayPatch(e, day, p)
	s.respondSchedule(w, r, view, err)
}

func applyDayPatch(e *schedule.Editor, day int, p dayPatch) (schedule.View, error) {
	if p.WorkoutType == nil && p.Name == nil && len(p.WorkoutID) == 0 && p.Cardio == nil {
		verr := &models.ValidationError{}
		verr.Add("day", "no changes given")
		return schedule.View{}, verr
	}

	var view schedule.View
	var err error
	if p.WorkoutType != nil {
		if view, err = e.SetWorkoutType(day, *p.WorkoutType); err != nil {
			return view, err
		}
	}
	if p.Name != nil {
		if view, err = e.SetName(day, *p.Name); err != nil {
			return view, err
		}
	}
	if len(p.WorkoutID) > 0 {
		var id *uuid.UUID
		if err := json.Unmarshal(p.WorkoutID, &id); err != nil {
			verr := &models.ValidationError{}
			verr.Add("workout_id", "must be a template id or null")
			return view, verr
		}
		if view, err = e.SetWorkout(day, id); err != nil {
			return view, err
		}
	}
	if p.Cardio != nil {
		if view, err = e.SetCardio(day, p.Cardio.GoalType, p.Cardio.Distance, p.Cardio.TargetTimeMinutes); err != nil {
			return view, err
		}
	}
	return view, nil
}
