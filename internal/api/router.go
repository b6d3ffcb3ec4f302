package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter mounts the /api/v1 surface. Health, login, metrics and the
// WebSocket endpoint are open; everything that reads or changes the show
// sits behind requireToken.
func (s *Server) buildRouter() http.Handler {
	cors := newCORSPolicy(s.cfg.CORS.AllowedOrigins, s.cfg.CORS.AllowedMethods, s.cfg.CORS.AllowedHeaders)

	r := chi.NewRouter()
	r.Use(s.withRequestID, s.withAccessLog, s.withRecovery, cors.middleware, limitBody)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Get("/metrics", s.handleMetrics)
		api.Post("/auth/login", s.handleLogin)
		// The ticket is checked inside the handler.
		api.Get("/ws", s.handleWebSocket)

		api.With(s.requireToken).Group(func(p chi.Router) {
			p.Post("/auth/ws-ticket", s.handleWSTicket)
			p.Get("/status", s.handleStatus)

			for path, h := range map[string]http.HandlerFunc{
				"/discovery/start": s.handleStartDiscovery,
				"/discovery/stop":  s.handleStopDiscovery,
				"/streaming/start": s.handleStartStreaming,
				"/streaming/stop":  s.handleStopStreaming,
			} {
				p.Post(path, h)
			}

			p.Get("/shows", s.handleListShows)
			p.Get("/show", s.handleGetShow)
			p.Put("/show", s.handleSetShow)
			p.Get("/spectrum", s.handleSpectrum)

			p.Get("/devices", s.handleListDevices)
			p.Delete("/devices/{key}", s.handleDeleteDevice)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
