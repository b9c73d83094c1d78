package server

import (
	"net/http"
	"strconv"

	"github.com/claude/fitlog/internal/models"
)

func (s *Server) handleListMeasurements(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start, end, err := parseTimeRange(r, s.now(), 365)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, 5000)
		}
	}
	list, err := s.measurements.List(r.Context(), uid, start, end, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.BodyMeasurement{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateMeasurement(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var m models.BodyMeasurement
	if !decodeJSON(w, r, &m) {
		return
	}
	if err := s.measurements.Create(r.Context(), uid, &m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleUpdateMeasurement(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var m models.BodyMeasurement
	if !decodeJSON(w, r, &m) {
		return
	}
	if err := s.measurements.Update(r.Context(), uid, id, &m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.measurements.Delete(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	list, err := s.measurements.Sources(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.MeasurementSource{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	src, err := s.measurements.CreateSource(r.Context(), uid, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.measurements.DeleteSource(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	list, err := s.measurements.Fields(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.CustomMeasurementField{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateField(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var f models.CustomMeasurementField
	if !decodeJSON(w, r, &f) {
		return
	}
	if err := s.measurements.CreateField(r.Context(), uid, &f); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.measurements.DeleteField(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
