package server

import (
	"net/http"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/template"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	list, err := s.templates.List(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.WorkoutTemplate{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	t, err := s.templates.Get(r.Context(), uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var t models.WorkoutTemplate
	if !decodeJSON(w, r, &t) {
		return
	}
	if err := s.templates.Create(r.Context(), uid, &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleReplaceTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var t models.WorkoutTemplate
	if !decodeJSON(w, r, &t) {
		return
	}
	if err := s.templates.Replace(r.Context(), uid, id, &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.templates.Delete(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.workspaces.Get(uid).Schedule.TemplateDeleted(r.Context(), id); err != nil {
		s.log.Warn("refreshing schedule after template delete", "user", uid, "template", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// editTemplate applies fn to the stored template and writes the saved result.
func (s *Server) editTemplate(w http.ResponseWriter, r *http.Request, fn func(t *models.WorkoutTemplate) error) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	t, err := s.templates.Edit(r.Context(), uid, id, fn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Notes string `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.editTemplate(w, r, func(t *models.WorkoutTemplate) error {
		template.AddExercise(t, req.Name, req.Notes)
		return nil
	})
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ex, ok := intParam(w, r, "ex")
	if !ok {
		return
	}
	s.editTemplate(w, r, func(t *models.WorkoutTemplate) error {
		return template.RemoveExercise(t, ex)
	})
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	ex, ok := intParam(w, r, "ex")
	if !ok {
		return
	}
	var spec template.SetSpec
	if !decodeJSON(w, r, &spec) {
		return
	}
	s.editTemplate(w, r, func(t *models.WorkoutTemplate) error {
		return template.AddSet(t, ex, spec)
	})
}

func (s *Server) handleQuickSets(w http.ResponseWriter, r *http.Request) {
	ex, ok := intParam(w, r, "ex")
	if !ok {
		return
	}
	var req struct {
		Warmups int              `json:"warmups"`
		Works   int              `json:"works"`
		Warmup  template.SetSpec `json:"warmup"`
		Work    template.SetSpec `json:"work"`
		// Replace drops the exercise's existing sets first.
		Replace bool `json:"replace"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.editTemplate(w, r, func(t *models.WorkoutTemplate) error {
		if ex < 0 || ex >= len(t.Exercises) {
			return template.ErrIndex
		}
		sets := template.QuickSets(req.Warmups, req.Works, req.Warmup, req.Work)
		if req.Replace {
			t.Exercises[ex].Sets = sets
		} else {
			t.Exercises[ex].Sets = append(t.Exercises[ex].Sets, sets...)
		}
		return nil
	})
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	ex, set, ok := setIndexes(w, r)
	if !ok {
		return
	}
	s.editTemplate(w, r, func(t *models.WorkoutTemplate) error {
		return template.RemoveSet(t, ex, set)
	})
}

