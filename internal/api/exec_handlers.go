package api

import (
	"net/http"
)

type execRequest struct {
	Cmd string `json:"cmd"`
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	var req execRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeValidationError(w, "invalid json: "+err.Error())
		return
	}
	if err := validateExecRequest(req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	result, err := s.files.RunCommand(r.Context(), ownerID(r), id, req.Cmd)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
