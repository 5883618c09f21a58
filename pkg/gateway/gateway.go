// Package gateway exposes the tutoring engine over HTTP.
//
// Turns stream as server-sent events (POST /v1/turns) or as JSON frames
// over a WebSocket (GET /v1/turns/ws). The admin surface covers sessions,
// lessons, profiles, and mastery reports.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/edvora/minerva/pkg/kv"
	"github.com/edvora/minerva/pkg/mastery"
	"github.com/edvora/minerva/pkg/store"
	"github.com/edvora/minerva/pkg/tutor"
)

// Server routes HTTP requests to the engine and the store.
type Server struct {
	engine   *tutor.Engine
	store    *store.Store
	recorder *mastery.Recorder
}

// NewServer creates a gateway over the given engine and store. A nil
// recorder gets a fresh one over the same store.
func NewServer(engine *tutor.Engine, st *store.Store, rec *mastery.Recorder) *Server {
	if rec == nil {
		rec = mastery.NewRecorder(st)
	}
	return &Server{engine: engine, store: st, recorder: rec}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/turns", s.handleTurnSSE)
	mux.HandleFunc("GET /v1/turns/ws", s.handleTurnWS)

	mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /v1/sessions/{id}/end", s.handleEndSession)

	mux.HandleFunc("PUT /v1/lessons/{id}", s.handlePutLesson)
	mux.HandleFunc("GET /v1/lessons/{id}", s.handleGetLesson)

	mux.HandleFunc("PUT /v1/profiles/{id}", s.handlePutProfile)
	mux.HandleFunc("GET /v1/profiles/{id}", s.handleGetProfile)

	mux.HandleFunc("GET /v1/mastery/{user}/{lesson}", s.handleMastery)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("gateway: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeStatus maps a store error to an HTTP status.
func storeStatus(err error) int {
	if errors.Is(err, kv.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
