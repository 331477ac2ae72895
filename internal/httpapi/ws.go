package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/leadsweep/leadsweep/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is expected to sit behind the operator's own network
	// boundary; origin policy stays permissive.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents streams run-progress snapshots over a websocket until the
// client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	// Reader goroutine: detect client close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case p, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(p); err != nil {
				return
			}
		}
	}
}
