package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ledtube-core/internal/device"
)

// handleListDevices returns every registered device endpoint.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	endpoints, err := s.registry.GetAll(r.Context())
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": endpoints,
		"count":   len(endpoints),
	})
}

// handleDeleteDevice removes one endpoint by its "address:port" key.
// The device is re-added if it registers again.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		writeBadRequest(w, "invalid device key")
		return
	}
	if _, _, err := device.ParseKey(key); err != nil {
		writeBadRequest(w, "device key must be address:port")
		return
	}

	if err := s.registry.Delete(r.Context(), key); err != nil {
		s.writeDomainError(w, "failed to delete device", err)
		return
	}

	s.logger.Info("device removed", "key", key)
	w.WriteHeader(http.StatusNoContent)
}
