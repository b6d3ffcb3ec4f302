package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/ledtube-core/internal/device"
	"github.com/nerrad567/ledtube-core/internal/engine"
	"github.com/nerrad567/ledtube-core/internal/lightshow"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnavailable  = "unavailable"
)

// errorMapping turns a domain error into a response. An empty message
// means the error text is shown to the client.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var domainErrors = []errorMapping{
	{lightshow.ErrUnknownKind, http.StatusBadRequest, ErrCodeBadRequest, ""},
	{lightshow.ErrInvalidParams, http.StatusBadRequest, ErrCodeValidation, ""},
	{lightshow.ErrSpectrumRequired, http.StatusConflict, ErrCodeConflict, "audio pipeline not configured"},
	{engine.ErrShutdown, http.StatusServiceUnavailable, ErrCodeUnavailable, "engine is shutting down"},
	{device.ErrEndpointNotFound, http.StatusNotFound, ErrCodeNotFound, "device not found"},
}

// writeJSON writes v as JSON with the given status. A nil v writes no body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError answers with the first matching domain mapping, or logs
// err and answers 500 with msg.
func (s *Server) writeDomainError(w http.ResponseWriter, msg string, err error) {
	for _, m := range domainErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		text := m.message
		if text == "" {
			text = err.Error()
		}
		writeError(w, m.status, m.code, text)
		return
	}
	s.logger.Error(msg, "error", err)
	writeInternalError(w, msg)
}
