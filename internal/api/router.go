package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleConnectDevice)
			r.Get("/catalog", s.handleCatalog)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDisconnectDevice)
				r.Post("/sync", s.handleSyncDevice)
			})
		})

		r.Post("/sync", s.handleSyncAll)
		r.Get("/synclogs", s.handleListSyncLogs)

		r.Route("/triggers", func(r chi.Router) {
			r.Get("/", s.handleListTriggers)
			r.Post("/", s.handleCreateTrigger)
			r.Delete("/{id}", s.handleDeleteTrigger)
		})

		r.Route("/geofences", func(r chi.Router) {
			r.Get("/", s.handleListFences)
			r.Post("/", s.handleCreateFence)
			r.Delete("/{id}", s.handleDeleteFence)
		})
		r.Post("/position", s.handlePosition)

		r.Route("/automations", func(r chi.Router) {
			r.Get("/", s.handleListAutomations)
			r.Post("/", s.handleCreateAutomation)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteAutomation)
				r.Post("/execute", s.handleExecuteAutomation)
			})
		})

		r.Post("/voice", s.handleVoiceCommand)
		r.Get("/queue", s.handleQueueStatus)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.engine.Registry.Count(),
		"queued":  s.engine.Queue.Len(),
	})
}
