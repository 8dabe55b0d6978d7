package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
)

// maxRequestBodyBytes limits decoded JSON payloads.
const maxRequestBodyBytes int64 = 1 << 20

var errInvalidRequest = errors.New("invalid request")

// APIError is one structured API failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// writeErrorFrom maps engine errors onto HTTP statuses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	apiErr := APIError{Code: errs.Code(err), Message: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, errInvalidRequest):
		status = http.StatusBadRequest
		apiErr.Code = "invalid_request"
	case errors.Is(err, quality.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quality.ErrForbidden):
		status = http.StatusForbidden
		apiErr.Hint = "Send a known actor id in the " + HeaderActorID + " header."
	case errors.Is(err, quality.ErrInvalidTransition):
		status = http.StatusConflict
		apiErr.Hint = "Reload the issue; its status does not allow this action."
	case errors.Is(err, quality.ErrPreconditionFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, quality.ErrConflict):
		status = http.StatusConflict
		apiErr.Hint = "Reload the issue and retry."
	case errors.Is(err, quality.ErrUnavailable):
		status = http.StatusServiceUnavailable
		apiErr.Hint = "Retry later with the same " + HeaderIdempotencyKey + "."
		w.Header().Set("Retry-After", "1")
	default:
		apiErr.Code = "internal_error"
	}
	writeJSONError(w, status, apiErr)
}

func writeJSONError(w http.ResponseWriter, status int, apiErr APIError) {
	writeJSON(w, status, ErrorEnvelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":%q}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes a JSON body strictly. An empty body leaves out
// untouched when optional is set.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any, optional bool) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", errInvalidRequest)
	}
	if err := ctx.Err(); err != nil {
		return quality.Unavailable(fmt.Errorf("request canceled: %w", err))
	}
	return nil
}
