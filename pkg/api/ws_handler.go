package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/livenessd/server/internal/logging"
)

const maxMessageBytes = 1 << 20 // 1 MiB per spec §6

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// CORS is handled permissively at the router level; the origin check
	// here mirrors that by accepting any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.L("api").Warn("websocket upgrade failed", logging.KeyError, err.Error())
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	s.connectionHandler().Serve(conn)
}
