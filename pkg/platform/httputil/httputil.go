// Package httputil renders the JSON envelope every endpoint answers with and decodes
// request bodies into validated request structs.
//
// Success: {"success": true, ...payload}
// Failure: {"success": false, "error": "<code>", "message": "<client-safe text>"}
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "rctrack/pkg/domain-errors"
)

// maxJSONBody bounds JSON request bodies. Uploads use multipart and their own limit.
const maxJSONBody = 1 << 20

const genericInternalMessage = "Something went wrong"

// Validatable is implemented by request structs decoded with DecodeAndPrepare.
type Validatable interface {
	Validate() error
}

// Normalizer is optionally implemented to trim and canonicalise input before validation.
type Normalizer interface {
	Normalize()
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError classifies err and writes the failure envelope. Unclassified and internal
// errors are rendered with a generic message so storage or database text never leaks.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	msg := genericInternalMessage
	if de, ok := dErrors.As(err); ok && code != dErrors.CodeInternal {
		msg = de.Message
	}
	WriteJSON(w, dErrors.HTTPStatus(code), ErrorResponse{
		Success: false,
		Error:   string(code),
		Message: msg,
	})
}

// DecodeAndPrepare decodes the JSON body into T, normalizes it when supported and
// validates it. On failure the error response is already written and ok is false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		// An empty body decodes into the zero value; Validate decides what is required.
		if !errors.Is(err, io.EOF) {
			logger.WarnContext(ctx, "failed to decode request body",
				"error", err,
				"request_id", requestID,
			)
			// Field-level decoders may classify their own failure.
			if _, ok := dErrors.As(err); ok {
				WriteError(w, err)
				return nil, false
			}
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return nil, false
		}
	}

	p := PT(&req)
	if n, ok := any(p).(Normalizer); ok {
		n.Normalize()
	}
	if err := p.Validate(); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
