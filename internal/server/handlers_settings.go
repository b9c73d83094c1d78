package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "sign-in is not configured"})
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	verr := &models.ValidationError{}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		verr.Add("email", "email is required")
	}
	if req.Password == "" {
		verr.Add("password", "password is required")
	}
	if err := verr.Err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.backend.SignIn(req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	p, err := s.db.GetProfile(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var p models.Profile
	if !decodeJSON(w, r, &p) {
		return
	}
	p.UserID = uid
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if err := p.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.db.UpsertProfile(r.Context(), &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeleteUserData removes the selected kinds of data. Deleting templates
// or the schedule also drops the in-memory session and schedule state, which
// would otherwise still show the deleted rows.
func (s *Server) handleDeleteUserData(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var opts storage.DeleteOptions
	if !decodeJSON(w, r, &opts) {
		return
	}
	if !opts.Any() {
		verr := &models.ValidationError{}
		verr.Add("options", "select at least one kind of data")
		s.writeError(w, r, verr)
		return
	}
	if err := s.db.DeleteUserData(r.Context(), uid, opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Workouts || opts.Schedule {
		s.workspaces.Forget(uid)
	}
	s.log.Info("user data deleted", "user", uid, "options", opts)
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAccount removes the auth account and then all data. A backend
// failure leaves everything in place. If the rows cannot be removed after the
// account is gone, the response says so.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	if s.backend == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "account deletion is not configured"})
		return
	}
	if err := s.backend.DeleteAccount(r.Context(), accessTokenFromContext(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.workspaces.Forget(uid)
	all := storage.DeleteOptions{Workouts: true, Sessions: true, Schedule: true, Measurements: true}
	if err := s.db.DeleteUserData(context.WithoutCancel(r.Context()), uid, all); err != nil {
		s.log.Error("account deleted but data removal failed", "user", uid, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "account deleted, but stored data could not be removed",
		})
		return
	}
	s.log.Info("account deleted", "user", uid)
	w.WriteHeader(http.StatusNoContent)
}
