package api

import (
	"net/http"
)

type createSessionRequest struct {
	DisplayName string `json:"display_name"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeValidationError(w, "invalid json: "+err.Error())
		return
	}
	if err := validateCreateSessionRequest(req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	owner := ownerID(r)
	s.logger.Debug("create session", "owner_id", owner, "display_name", req.DisplayName)
	info, err := s.sessions.Create(r.Context(), owner, req.DisplayName)
	if err != nil {
		s.logger.Error("create session", "owner_id", owner, "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	info, err := s.sessions.Get(r.Context(), ownerID(r), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context(), ownerID(r))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	s.logger.Debug("open session", "session_id", id)
	info, err := s.sessions.Open(r.Context(), ownerID(r), id)
	if err != nil {
		s.logger.Error("open session", "session_id", id, "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleSuspendSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	s.logger.Debug("suspend session", "session_id", id)
	info, err := s.sessions.Suspend(r.Context(), ownerID(r), id)
	if err != nil {
		s.logger.Error("suspend session", "session_id", id, "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	force := r.URL.Query().Get("force") == "true"

	s.logger.Debug("delete session", "session_id", id, "force", force)
	if err := s.sessions.Delete(r.Context(), ownerID(r), id, force); err != nil {
		s.logger.Error("delete session", "session_id", id, "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
