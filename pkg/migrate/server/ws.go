package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamJobProgress pushes report snapshots over a WebSocket until the run
// reaches a terminal state. Clients that only want polling use GET instead.
func (s *Server) StreamJobProgress(w http.ResponseWriter, r *http.Request) {
	j := s.Jobs.Get(chi.URLParam(r, "id"))
	if j == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		rep := j.Snapshot()
		if err := conn.WriteJSON(s.jobResponse(j)); err != nil {
			return
		}
		if j.Done() && rep.Done() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(rep.Overall)))
			return
		}
	}
}
