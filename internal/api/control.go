package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nerrad567/ledtube-core/internal/engine"
	"github.com/nerrad567/ledtube-core/internal/lightshow"
)

// ShowInfo describes one selectable show for GET /shows.
type ShowInfo struct {
	Name  lightshow.Kind `json:"name"`
	Music bool           `json:"music"`
	// Available is false for music shows when no audio pipeline is configured.
	Available bool `json:"available"`
}

// handleStatus returns the engine status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// handleStartDiscovery starts the beacon and the registration listener.
func (s *Server) handleStartDiscovery(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.StartDiscovery(r.Context()); err != nil {
		s.writeDomainError(w, "failed to start discovery", err)
		return
	}
	s.logger.Info("discovery started via API", "by", subjectFrom(r.Context()))
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// handleStopDiscovery stops the beacon and the registration listener.
func (s *Server) handleStopDiscovery(w http.ResponseWriter, _ *http.Request) {
	s.engine.StopDiscovery()
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// handleStartStreaming starts the frame streamer.
func (s *Server) handleStartStreaming(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.StartStreaming(r.Context()); err != nil {
		s.writeDomainError(w, "failed to start streaming", err)
		return
	}
	s.logger.Info("streaming started via API", "by", subjectFrom(r.Context()))
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// handleStopStreaming stops the frame streamer.
func (s *Server) handleStopStreaming(w http.ResponseWriter, _ *http.Request) {
	s.engine.StopStreaming()
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// handleListShows lists every show kind.
func (s *Server) handleListShows(w http.ResponseWriter, _ *http.Request) {
	kinds := lightshow.Kinds()
	shows := make([]ShowInfo, 0, len(kinds))
	for _, k := range kinds {
		shows = append(shows, ShowInfo{
			Name:      k,
			Music:     k.IsMusic(),
			Available: !k.IsMusic() || s.spectrum != nil,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shows": shows,
		"count": len(shows),
	})
}

// handleGetShow returns the active show session.
func (s *Server) handleGetShow(w http.ResponseWriter, _ *http.Request) {
	session, ok := s.engine.CurrentShow()
	if !ok {
		writeNotFound(w, "no show selected")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleSetShow selects the active show.
//
// Body: {"show": "ping_pong", "params": {"ping_pong": {"tail_fade": 0.5}}}
func (s *Server) handleSetShow(w http.ResponseWriter, r *http.Request) {
	var req engine.ShowCommand
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	kind, err := lightshow.ParseKind(req.Show)
	if err != nil {
		writeBadRequest(w, "unknown show: "+req.Show)
		return
	}

	session, err := s.engine.SetShow(kind, req.Params)
	if err != nil {
		s.writeDomainError(w, "failed to set show", err)
		return
	}
	s.logger.Info("show selected via API", "show", kind, "session", session.ID, "by", subjectFrom(r.Context()))
	writeJSON(w, http.StatusOK, session)
}

// handleSpectrum returns the newest audio spectrum.
func (s *Server) handleSpectrum(w http.ResponseWriter, _ *http.Request) {
	if s.spectrum == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audio pipeline not configured")
		return
	}
	bands, ok := s.spectrum.Spectrum()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no spectrum yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bands":     bands,
		"count":     len(bands),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
