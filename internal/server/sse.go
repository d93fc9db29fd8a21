package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opencode-ai/opencode/pkg/types"
)

// sseWriter writes the orchestrator's Event Bus onto the HTTP response
// in the exact framing spec.md §6 requires: a literal "data: " prefix
// followed by single-line compact JSON, terminated by a blank line. No
// "event:" line and no event IDs, since a turn has exactly one
// consumer and no need for client-side replay.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

func (s *sseWriter) writeEvent(evt types.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
	return nil
}
