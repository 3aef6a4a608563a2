// Package httpx provides the HTTP surface of the reviewer: the MIP-003
// buyer-facing API and the worker's internal execution endpoint.
package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination.
// Returns true on success; on failure the error response is already written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteAppError maps the error taxonomy to HTTP statuses and writes the
// error response.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrCodePayment:
		status = http.StatusBadGateway
	case apperrors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	case apperrors.ErrCodeWorkerExecution, apperrors.ErrCodeAnalyzer:
		status = http.StatusInternalServerError
	}

	errCode := string(code)
	if errCode == "" {
		errCode = string(apperrors.ErrCodeInternal)
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: errCode, Err: err})
}
