package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/apperror"
	"github.com/CreativeUnicorns/navsync/content"
	"github.com/CreativeUnicorns/navsync/datasync"
)

// maxBodyBytes caps request bodies; a full navigation tree fits comfortably.
const maxBodyBytes = 1024 * 1024

// errorBody is the payload of every non-2xx response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string         `json:"message"`
	Code    apperror.Kind  `json:"code,omitempty"`
	Details string         `json:"details,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// statusFor maps a failure returned by the repository or the coordinator to
// an HTTP status. Remote store failures surface as gateway errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, navsync.ErrValidation), errors.Is(err, navsync.ErrInvalidInput),
		errors.Is(err, navsync.ErrSerialization):
		return http.StatusBadRequest
	case errors.Is(err, datasync.ErrSyncInProgress), errors.Is(err, navsync.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, datasync.ErrBackupNotFound), errors.Is(err, content.ErrCategoryNotFound),
		errors.Is(err, content.ErrItemNotFound), errors.Is(err, content.ErrUnknownCollection):
		return http.StatusNotFound
	case errors.Is(err, navsync.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, navsync.ErrNotFound), errors.Is(err, navsync.ErrUnauthorized),
		errors.Is(err, navsync.ErrForbidden), errors.Is(err, navsync.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError sends a JSON error response.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	body := errorBody{Error: errorDetail{Message: message}}
	if err != nil {
		body.Error.Details = err.Error()
		var ae *apperror.AppError
		if errors.As(err, &ae) {
			body.Error.Code = ae.Kind
			body.Error.Fields = ae.Details
		}
	}
	s.logger.Error("API Error", "status", status, "message", message, "path", r.URL.Path, "error", err)
	s.respondWithJSON(w, r, status, body)
}

// respondWithFailure derives the status from err.
func (s *Server) respondWithFailure(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.respondWithError(w, r, statusFor(err), message, err)
}

// respondWithJSON is a helper to send JSON responses.
func (s *Server) respondWithJSON(w http.ResponseWriter, _ *http.Request, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Failed to marshal response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// decodeJSON reads a size-limited body into v, rejecting unknown fields.
// It writes the 400 response itself and reports whether decoding succeeded.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request payload", err)
		return false
	}
	return true
}
