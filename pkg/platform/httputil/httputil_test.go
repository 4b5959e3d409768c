package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rctrack/pkg/domain-errors"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error hides the cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("pq: relation does not exist"), dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		assert.False(t, body.Success)
		assert.Equal(t, "internal_error", body.Error)
		assert.NotContains(t, body.Message, "pq:")
		assert.NotContains(t, body.Message, "db failed")
	})

	t.Run("unclassified error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("disk full"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, genericInternalMessage, decodeError(t, w).Message)
	})

	t.Run("validation error includes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.NewWithReason(dErrors.CodeValidation, "duplicate_registration", "vehicle is already registered"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "validation_error", body.Error)
		assert.Equal(t, "vehicle is already registered", body.Message)
	})
}

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Normalize() { r.Name = strings.TrimSpace(r.Name) }

func (r *sampleRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("normalizes then validates", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  Swift  "}`))
		w := httptest.NewRecorder()

		req, ok := DecodeAndPrepare[sampleRequest](w, r, logger, r.Context(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "Swift", req.Name)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[sampleRequest](w, r, logger, r.Context(), "req-2")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w).Error)
	})

	t.Run("empty body reaches validation", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[sampleRequest](w, r, logger, r.Context(), "req-3")
		require.False(t, ok)
		assert.Equal(t, "validation_error", decodeError(t, w).Error)
	})
}

type strictFlag bool

func (f *strictFlag) UnmarshalJSON(b []byte) error {
	if string(b) != "true" && string(b) != "false" {
		return dErrors.NewWithReason(dErrors.CodeValidation, "malformed_status", "flag must be a boolean")
	}
	*f = string(b) == "true"
	return nil
}

type flagRequest struct {
	Flag strictFlag `json:"flag"`
}

func (r *flagRequest) Validate() error { return nil }

func TestDecodeAndPrepareKeepsFieldErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"flag":"maybe"}`))
	w := httptest.NewRecorder()

	_, ok := DecodeAndPrepare[flagRequest](w, r, logger, r.Context(), "req-3")
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "validation_error", body.Error)
	assert.Equal(t, "flag must be a boolean", body.Message)
}
