package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/edvora/minerva/pkg/tutor"
)

// handleTurnSSE runs one turn and streams its events as server-sent
// events: one "data: <json>" line per event, blank-line terminated. The
// terminal done or error event ends the stream; no extra marker follows.
func (s *Server) handleTurnSSE(w http.ResponseWriter, r *http.Request) {
	var req tutor.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid turn request: "+err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// A write failure means the client is gone: report false so the
	// engine stops emitting, and let the turn finish in the background.
	sink := func(ev tutor.Event) bool {
		data, err := json.Marshal(ev)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	s.engine.ProcessTurn(r.Context(), req, sink)
}
