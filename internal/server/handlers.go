package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/draft"
	"github.com/claude/liftlog/internal/engine"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

type createSessionRequest struct {
	SubjectID  uuid.UUID `json:"subject_id"`
	TrainerID  uuid.UUID `json:"trainer_id"`
	Date       string    `json:"date,omitempty"`
	PairMember *string   `json:"pair_member,omitempty"`
	SelfLogged bool      `json:"self_logged,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.SubjectID == uuid.Nil || req.TrainerID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject_id and trainer_id required"})
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	cfg := s.engCfg
	cfg.PairMember = req.PairMember
	cfg.SelfLogged = req.SelfLogged
	if req.PairMember != nil {
		cfg.WorkoutType = "pair"
	}

	key := draftKey(req.SubjectID, date)
	saver := draft.NewAutoSaver(s.cache, key, draft.DefaultInterval, true, s.log)
	eng := engine.New(s.db, saver, s.log, req.SubjectID, req.TrainerID, date, cfg)
	id := s.sessions.add(eng)

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"has_draft":  eng.HasDraft(),
	})
}

func draftKey(subjectID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("draft:%s:%s", subjectID, date.Format("2006-01-02"))
}

// sessionFromRequest resolves the {id} route param to a live engine.
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return nil, false
	}
	eng, err := s.sessions.get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return eng, true
}

func indexParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

// writeEngineError maps engine errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrSessionClosed):
		writeJSON(w, http.StatusGone, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrEmptySession), errors.Is(err, engine.ErrNotMaterialized):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrWorkoutNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.log.Error("session operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// writeState responds with the canonical session state plus any
// pending warnings, the common reply to every mutation.
func (s *Server) writeState(w http.ResponseWriter, eng *engine.Engine) {
	sess, meta := eng.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  sess,
		"meta":     meta,
		"warnings": eng.TakeWarnings(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}
	eng, err := s.sessions.remove(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	eng.Abandon(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Exercise models.ExerciseRef `json:"exercise"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Exercise.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise with id required"})
		return
	}
	if err := eng.AddExercise(r.Context(), req.Exercise); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	index, err := indexParam(r, "index")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise index"})
		return
	}
	if err := eng.RemoveExercise(r.Context(), index); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	index, err := indexParam(r, "index")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise index"})
		return
	}
	if err := eng.AddSet(index); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	exIdx, err1 := indexParam(r, "index")
	setIdx, err2 := indexParam(r, "set")
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}
	if err := eng.RemoveSet(exIdx, setIdx); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleDuplicateSet(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	exIdx, err1 := indexParam(r, "index")
	setIdx, err2 := indexParam(r, "set")
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}
	if err := eng.DuplicateSet(exIdx, setIdx); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	exIdx, err1 := indexParam(r, "index")
	setIdx, err2 := indexParam(r, "set")
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}
	var req struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Field == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field and value required"})
		return
	}
	if err := eng.UpdateSet(exIdx, setIdx, req.Field, req.Value); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := eng.SetNotes(req.Notes); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleSetDate(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
		return
	}
	if err := eng.SetDate(date); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	res, err := eng.Save(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAutoSave(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	res, err := eng.AutoSave(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	eng.SaveDraft()
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleRestoreDraft(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	restored, err := eng.RestoreDraft(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if !restored {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no draft to restore"})
		return
	}
	s.writeState(w, eng)
}

func (s *Server) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	eng.DiscardDraft()
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

// handleUIAction routes presentation-state toggles. They mutate the
// session model but never sync remotely.
func (s *Server) handleUIAction(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		ExerciseLocalID string `json:"exercise_local_id,omitempty"`
		SetLocalID      string `json:"set_local_id,omitempty"`
		ExerciseIndex   int    `json:"exercise_index,omitempty"`
		SetIndex        int    `json:"set_index,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	var err error
	switch chi.URLParam(r, "action") {
	case "toggle-minimize":
		err = eng.ToggleMinimize(req.ExerciseLocalID)
	case "complete-exercise":
		err = eng.CompleteExercise(req.ExerciseLocalID)
	case "toggle-collapse":
		err = eng.ToggleCollapseSet(req.SetLocalID)
	case "expand-all":
		err = eng.ExpandAllSets(req.ExerciseIndex)
	case "complete-set":
		err = eng.CompleteSetAndMoveNext(req.ExerciseIndex, req.SetIndex)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeState(w, eng)
}
