package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
	"github.com/sokosumi/aikido-reviewer/internal/mocks"
)

const workerSecret = "worker-test-secret"

type workerFixture struct {
	ctrl     *gomock.Controller
	analyzer *mocks.MockAnalyzer
	scanner  *mocks.MockScanner
	handler  http.Handler
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	analyzer := mocks.NewMockAnalyzer(ctrl)
	scanner := mocks.NewMockScanner(ctrl)

	return &workerFixture{
		ctrl:     ctrl,
		analyzer: analyzer,
		scanner:  scanner,
		handler: NewWorkerRouter(WorkerRouterServices{
			Analyzer:     analyzer,
			Scanner:      scanner,
			SharedSecret: workerSecret,
		}),
	}
}

func (f *workerFixture) execute(body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/execute", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	req.Header.Set(WorkerRequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func executeBody(t *testing.T, input map[string]any) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"job_id":     "job-1",
		"payment_id": "pay-1",
		"input_data": input,
	})
	require.NoError(t, err)
	return string(body)
}

func manualInput() map[string]any {
	return map[string]any{
		"aikido_report": testFindingsJSON,
		"source_files": map[string]string{
			"validators/vesting.ak": "validator vesting { }",
		},
	}
}

func TestWorkerExecute_RejectsMissingToken(t *testing.T) {
	f := newWorkerFixture(t)

	rec := f.execute(executeBody(t, manualInput()), "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, string(apperrors.ErrCodeUnauthorized), got["error"])
}

func TestWorkerExecute_RejectsWrongToken(t *testing.T) {
	f := newWorkerFixture(t)

	rec := f.execute(executeBody(t, manualInput()), "Bearer not-the-secret")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkerExecute_RejectsNonBearerScheme(t *testing.T) {
	f := newWorkerFixture(t)

	rec := f.execute(executeBody(t, manualInput()), "Basic "+workerSecret)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkerExecute_ManualMode(t *testing.T) {
	f := newWorkerFixture(t)
	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, params core.AnalyzeParams) (*model.ReviewReport, error) {
			assert.Equal(t, "vesting", params.Report.Project)
			assert.Contains(t, params.SourceFiles, "validators/vesting.ak")
			return &model.ReviewReport{
				SchemaVersion: "aikido.review.v1",
				Project:       "vesting",
				RiskScore:     7.0,
				RiskLevel:     "high",
			}, nil
		})

	rec := f.execute(executeBody(t, manualInput()), "Bearer "+workerSecret)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "aikido.review.v1", got["schema_version"])
	assert.Equal(t, "vesting", got["project"])
	assert.InDelta(t, 7.0, got["risk_score"], 0.001)
}

func TestWorkerExecute_MissingInputData(t *testing.T) {
	f := newWorkerFixture(t)

	rec := f.execute(`{"job_id": "job-1"}`, "Bearer "+workerSecret)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, string(apperrors.ErrCodeValidation), got["error"])
	assert.Contains(t, got["message"], "input_data")
}

func TestWorkerExecute_InvalidInput(t *testing.T) {
	f := newWorkerFixture(t)

	rec := f.execute(executeBody(t, map[string]any{
		"source_files": map[string]string{"a.ak": "x"},
	}), "Bearer "+workerSecret)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, string(apperrors.ErrCodeValidation), got["error"])
}

func TestWorkerExecute_AutoModeScansRepo(t *testing.T) {
	f := newWorkerFixture(t)
	report, err := model.ParseAikidoReport([]byte(testFindingsJSON))
	require.NoError(t, err)

	f.scanner.EXPECT().
		ScanRepo(gomock.Any(), "https://github.com/org/repo", "main", "").
		Return(&core.ScanResult{
			Report:      report,
			SourceFiles: map[string]string{"validators/vesting.ak": "validator vesting { }"},
		}, nil)
	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(&model.ReviewReport{SchemaVersion: "aikido.review.v1"}, nil)

	rec := f.execute(executeBody(t, map[string]any{
		"scan_mode": "auto",
		"repo_url":  "https://github.com/org/repo",
		"repo_ref":  "main",
	}), "Bearer "+workerSecret)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWorkerExecute_AutoModeScanFailure(t *testing.T) {
	f := newWorkerFixture(t)
	f.scanner.EXPECT().
		ScanRepo(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Timeout("aikido scan timed out"))

	rec := f.execute(executeBody(t, map[string]any{
		"scan_mode": "auto",
		"repo_url":  "https://github.com/org/repo",
	}), "Bearer "+workerSecret)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, string(apperrors.ErrCodeTimeout), got["error"])
}

func TestWorkerExecute_AnalyzerFailure(t *testing.T) {
	f := newWorkerFixture(t)
	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Analyzer("review pipeline exploded"))

	rec := f.execute(executeBody(t, manualInput()), "Bearer "+workerSecret)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, string(apperrors.ErrCodeAnalyzer), got["error"])
}

func TestWorkerRouter_HealthEndpoint(t *testing.T) {
	f := newWorkerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "ok", got["status"])
}
