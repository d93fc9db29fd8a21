package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures the orchestrator's API surface: the chat
// endpoint and the auxiliary session/file routes spec.md §6 describes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Post("/api/chat", s.chat)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.deleteSession)
			r.Route("/files", func(r chi.Router) {
				r.Get("/", s.listSessionFiles)
				// The file path itself may contain slashes, so it's
				// captured as a chi wildcard rather than a named
				// param; readSessionFile splits off a trailing "/raw"
				// segment to decide between the text and raw forms.
				r.Get("/*", s.readSessionFile)
			})
		})
	})
}
