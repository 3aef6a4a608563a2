package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokosumi/aikido-reviewer/internal/data"
)

func TestMetaHandlers_Health(t *testing.T) {
	h := &MetaHandlers{}
	rec := httptest.NewRecorder()

	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "ok", got["status"])
}

func TestMetaHandlers_Availability(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := data.NewFixedTimeProvider(start)
	h := &MetaHandlers{Time: clock, StartAt: start}

	clock.AddTime(90 * time.Second)
	rec := httptest.NewRecorder()
	h.Availability(rec, httptest.NewRequest(http.MethodGet, "/availability", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "available", got["status"])
	assert.InDelta(t, 90, got["uptime"], 0.001)
	assert.Contains(t, got["message"], "operational")
}

func TestMetaHandlers_InputSchema(t *testing.T) {
	h := &MetaHandlers{}
	rec := httptest.NewRecorder()

	h.InputSchema(rec, httptest.NewRequest(http.MethodGet, "/input_schema", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string][]schemaField
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	fields := got["input_data"]
	require.NotEmpty(t, fields)

	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.ID)
	}
	assert.Contains(t, ids, "scan_mode")
	assert.Contains(t, ids, "aikido_report")
	assert.Contains(t, ids, "source_files")
	assert.Contains(t, ids, "repo_url")
	assert.Contains(t, ids, "execution_backend")

	// No field is hard-required: manual and auto submissions need different
	// subsets and validation happens server side.
	for _, f := range fields {
		assert.False(t, f.Required, "field %s should not be required", f.ID)
	}
}
