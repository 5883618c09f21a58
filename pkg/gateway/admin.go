package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/edvora/minerva/pkg/store"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		LessonID string `json:"lesson_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	sess, err := s.store.CreateSession(r.Context(), req.UserID, req.LessonID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.EndSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handlePutLesson(w http.ResponseWriter, r *http.Request) {
	var lesson store.Lesson
	if err := json.NewDecoder(r.Body).Decode(&lesson); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	lesson.ID = r.PathValue("id")
	if lesson.Title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}

	if err := s.store.PutLesson(r.Context(), &lesson); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &lesson)
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := s.store.GetLesson(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), "lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var profile store.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	profile.UserID = r.PathValue("id")

	if err := s.store.PutProfile(r.Context(), &profile); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &profile)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleMastery(w http.ResponseWriter, r *http.Request) {
	report, err := s.recorder.Report(r.Context(), r.PathValue("user"), r.PathValue("lesson"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
