package api

import (
	"net/http"

	"github.com/p-arndt/werkbank/internal/terminal"
)

// handleTerminal upgrades to WebSocket and bridges the connection to an
// interactive shell in the session's container. Errors that can still
// be reported over plain HTTP are written before the upgrade; after it,
// failures close the socket.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	h, err := s.sessions.Resolve(r.Context(), ownerID(r), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade", "session_id", id, "error", err)
		return
	}
	defer conn.Close()

	stream, err := s.attacher.AttachInteractive(r.Context(), h, s.cfg.Shell)
	if err != nil {
		s.logger.Error("terminal attach", "session_id", id, "error", err)
		return
	}

	s.logger.Info("terminal attached", "session_id", id, "container", h.Name)
	err = s.bridge.Relay(terminal.NewWSStream(conn), stream, func() {
		s.sessions.Touch(id)
	})
	if err != nil {
		s.logger.Error("terminal relay", "session_id", id, "error", err)
		return
	}
	s.logger.Info("terminal detached", "session_id", id)
}
