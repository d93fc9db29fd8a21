package server

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opencode-ai/opencode/internal/workspace"
)

func (s *Server) sessionStore(sessionID string) *workspace.Store {
	return workspace.New(s.sessions.WorkspaceDir(sessionID))
}

// listSessionFiles handles GET /api/sessions/{sessionID}/files.
func (s *Server) listSessionFiles(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.sessions.Get(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	files, err := s.sessionStore(sessionID).ListFiles("")
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// readSessionFile handles both GET /api/sessions/{sessionID}/files/{path}
// (text) and GET /api/sessions/{sessionID}/files/{path}/raw (bytes),
// distinguished by a trailing "/raw" segment on the wildcard path chi
// captures, since the path itself may contain slashes.
func (s *Server) readSessionFile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.sessions.Get(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	relPath := chi.URLParam(r, "*")
	raw := false
	if trimmed := strings.TrimSuffix(relPath, "/raw"); trimmed != relPath {
		raw = true
		relPath = trimmed
	}
	if relPath == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "path required")
		return
	}

	content, err := s.sessionStore(sessionID).ReadFile(r.Context(), relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "file not found")
			return
		}
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	if raw {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(content))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": relPath, "content": content})
}
