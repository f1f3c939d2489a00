// Package httpapi holds the JSON response helpers shared by module handlers.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/rs/zerolog"
)

// Envelope is the body of every successful API response
type Envelope struct {
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
}

// Metadata accompanies response data
type Metadata struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorBody is the body of every failed API response
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// WriteJSON writes data as JSON with the given status
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteData wraps data in the standard envelope
func WriteData(w http.ResponseWriter, r *http.Request, log zerolog.Logger, status int, data interface{}) {
	WriteJSON(w, log, status, Envelope{
		Data: data,
		Metadata: Metadata{
			Timestamp: time.Now().Format(time.RFC3339),
			RequestID: w.Header().Get("X-Request-Id"),
		},
	})
}

// WriteError maps a domain error kind to its HTTP status
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, kind := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	WriteJSON(w, log, status, ErrorBody{Error: err.Error(), Kind: kind})
}

// WriteBadRequest reports malformed input that never reached the domain
func WriteBadRequest(w http.ResponseWriter, log zerolog.Logger, msg string) {
	WriteJSON(w, log, http.StatusBadRequest, ErrorBody{Error: msg, Kind: "validation"})
}

// StatusFor returns the HTTP status and kind label of err
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusConflict, "invalid_operation"
	case errors.Is(err, domain.ErrExternalUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// DecodeJSON reads a JSON request body into v, rejecting unknown fields
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("decode_request", "invalid JSON body: %v", err)
	}
	return nil
}
