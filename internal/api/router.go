package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/p-arndt/werkbank/internal/config"
	"github.com/p-arndt/werkbank/internal/terminal"
)

type Server struct {
	cfg      *config.Config
	sessions SessionService
	files    FileService
	attacher TerminalAttacher
	bridge   *terminal.Bridge
	logger   *slog.Logger
	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, sessions SessionService, files FileService, attacher TerminalAttacher, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		files:    files,
		attacher: attacher,
		bridge: terminal.NewBridge(
			cfg.Terminal.ChunkBytes,
			time.Duration(cfg.Terminal.IdleTimeoutSeconds)*time.Second,
			logger,
		),
		logger: logger,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
		},
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.authMiddleware(s.requestIDMiddleware(s.mux))
}

func (s *Server) routes() {
	// Lifecycle
	s.mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /v1/sessions/{id}/open", s.handleOpenSession)
	s.mux.HandleFunc("POST /v1/sessions/{id}/suspend", s.handleSuspendSession)
	s.mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)

	// Workspace files
	s.mux.HandleFunc("GET /v1/sessions/{id}/fs/list", s.handleFSList)
	s.mux.HandleFunc("GET /v1/sessions/{id}/fs/read", s.handleFSRead)
	s.mux.HandleFunc("POST /v1/sessions/{id}/fs/write", s.handleFSWrite)
	s.mux.HandleFunc("POST /v1/sessions/{id}/fs/rename", s.handleFSRename)
	s.mux.HandleFunc("POST /v1/sessions/{id}/fs/move", s.handleFSMove)
	s.mux.HandleFunc("POST /v1/sessions/{id}/fs/create", s.handleFSCreate)
	s.mux.HandleFunc("DELETE /v1/sessions/{id}/fs", s.handleFSDelete)

	// One-shot exec
	s.mux.HandleFunc("POST /v1/sessions/{id}/exec", s.handleExec)

	// Terminal (WebSocket)
	s.mux.HandleFunc("GET /v1/sessions/{id}/terminal", s.handleTerminal)

	// Health check (no auth)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
