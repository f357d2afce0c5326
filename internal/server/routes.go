package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes. Everything under /api sits
// behind the development gate.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.devGate)

		// Content boundary: read, one-shot validated write
		r.Get("/content", s.readContent)
		r.Post("/content", s.writeContent)

		// One-shot preview compile and HTML import
		r.Post("/preview", s.compilePreview)
		r.Post("/convert", s.convertHTML)

		// Session lifecycle
		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Post("/", s.openSession)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.closeSession)

				r.Post("/edit", s.editSession)
				r.Post("/save", s.saveSession)
				r.Post("/dismiss", s.dismissError)

				r.Get("/preview", s.getSessionPreview)
				r.Get("/event", s.sessionEvents)
				r.Get("/live", s.liveSession)
			})
		})

		// Event streaming (SSE)
		r.Get("/event", s.allEvents)

		// Adapters and configuration
		r.Get("/adapters", s.listAdapters)
		r.Get("/config", s.getConfig)
		r.Patch("/config", s.updateConfig)
	})
}
