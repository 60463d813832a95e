package api

import (
	"context"
	"encoding/base64"
	"net/http"
)

type writeRequest struct {
	Path          string `json:"path"`
	Text          string `json:"text,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type createRequest struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

type readResponse struct {
	Path          string `json:"path"`
	ContentBase64 string `json:"content_base64"`
}

func (s *Server) handleFSList(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	path := r.URL.Query().Get("path")

	entries, err := s.files.List(r.Context(), ownerID(r), id, path)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleFSRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeValidationError(w, "path query parameter is required")
		return
	}

	data, err := s.files.Read(r.Context(), ownerID(r), id, path)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readResponse{
		Path:          path,
		ContentBase64: base64.StdEncoding.EncodeToString(data),
	})
}

func (s *Server) handleFSWrite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	var req writeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeValidationError(w, "invalid json: "+err.Error())
		return
	}
	if err := validateWriteRequest(req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	data := []byte(req.Text)
	if req.ContentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			writeValidationError(w, "invalid base64 content")
			return
		}
		data = decoded
	}

	if err := s.files.Write(r.Context(), ownerID(r), id, req.Path, data); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleFSRename(w http.ResponseWriter, r *http.Request) {
	s.handleFromTo(w, r, s.files.Rename)
}

func (s *Server) handleFSMove(w http.ResponseWriter, r *http.Request) {
	s.handleFromTo(w, r, s.files.Move)
}

func (s *Server) handleFromTo(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, owner, id, from, to string) error) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	var req renameRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeValidationError(w, "invalid json: "+err.Error())
		return
	}
	if req.From == "" || req.To == "" {
		writeValidationError(w, "from and to are required")
		return
	}

	if err := op(r.Context(), ownerID(r), id, req.From, req.To); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleFSCreate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	var req createRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeValidationError(w, "invalid json: "+err.Error())
		return
	}
	if req.Path == "" {
		writeValidationError(w, "path is required")
		return
	}

	if err := s.files.Create(r.Context(), ownerID(r), id, req.Path, req.IsDir); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func (s *Server) handleFSDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeValidationError(w, "path query parameter is required")
		return
	}

	// Always soft: the target moves into the volume's trash root.
	if err := s.files.Delete(r.Context(), ownerID(r), id, path); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
