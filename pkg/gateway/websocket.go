package gateway

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/edvora/minerva/pkg/tutor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleTurnWS serves turns over one WebSocket connection: the client
// sends a turn request as a JSON text message, the server answers with
// the turn's event frames, then waits for the next request. The terminal
// done or error event delimits each turn.
func (s *Server) handleTurnWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	for {
		var req tutor.TurnRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("gateway: websocket read", "err", err)
			}
			return
		}

		sink := func(ev tutor.Event) bool {
			return conn.WriteJSON(ev) == nil
		}
		s.engine.ProcessTurn(r.Context(), req, sink)
	}
}
