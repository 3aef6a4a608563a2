package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

func TestWriteAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperrors.Validation("bad input"), http.StatusBadRequest, "validation"},
		{"not found", apperrors.NotFound("no such job"), http.StatusNotFound, "not_found"},
		{"unauthorized", apperrors.Unauthorized("bad token"), http.StatusUnauthorized, "unauthorized"},
		{"payment", apperrors.Payment("gateway down"), http.StatusBadGateway, "payment"},
		{"timeout", apperrors.Timeout("too slow"), http.StatusGatewayTimeout, "timeout"},
		{"worker execution", apperrors.WorkerExecution("worker 500"), http.StatusInternalServerError, "worker_execution"},
		{"analyzer", apperrors.Analyzer("pipeline broke"), http.StatusInternalServerError, "analyzer"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAppError(rec, tt.err)

			require.Equal(t, tt.wantStatus, rec.Code)
			got := decodeBody(t, rec)
			assert.Equal(t, tt.wantCode, got["error"])
			assert.NotEmpty(t, got["message"])
		})
	}
}
