package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{domain.NewValidationError("op", "bad"), http.StatusBadRequest, "validation"},
		{domain.NewNotFoundError("op", "missing"), http.StatusNotFound, "not_found"},
		{domain.NewInvalidOperationError("op", "oversell"), http.StatusConflict, "invalid_operation"},
		{domain.NewUnavailableError("op", errors.New("down")), http.StatusServiceUnavailable, "unavailable"},
		{domain.NewPersistenceError("op", errors.New("disk")), http.StatusInternalServerError, "internal"},
		{errors.New("plain"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, kind := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.kind, kind)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, zerolog.Nop(), domain.NewNotFoundError("get", "transaction 4 not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Kind)
	assert.Contains(t, body.Error, "transaction 4 not found")
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-Id", "abc")
	WriteData(rec, httptest.NewRequest(http.MethodGet, "/", nil), zerolog.Nop(), http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env struct {
		Data     map[string]int `json:"data"`
		Metadata Metadata       `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Data["n"])
	assert.Equal(t, "abc", env.Metadata.RequestID)
	assert.NotEmpty(t, env.Metadata.Timestamp)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Symbol string `json:"symbol"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"symbol":"AAPL"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "AAPL", v.Symbol)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	assert.ErrorIs(t, DecodeJSON(req, &v), domain.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	assert.ErrorIs(t, DecodeJSON(req, &v), domain.ErrValidation)
}
