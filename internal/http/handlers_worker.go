package httpx

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

// WorkerRequestIDHeader carries the caller's tracing id on internal
// execution calls.
const WorkerRequestIDHeader = "x-worker-request-id"

// WorkerHandlers serves the worker's internal execution endpoint. The
// worker hosts the same review pipeline as the API service but trusts its
// caller to have settled payment already.
type WorkerHandlers struct {
	Analyzer     core.Analyzer
	Scanner      core.Scanner
	SharedSecret string
	Logger       *slog.Logger
}

// executeRequest is the body of POST /internal/execute.
type executeRequest struct {
	JobID     string               `json:"job_id"`
	PaymentID string               `json:"payment_id"`
	InputData *model.ReviewRequest `json:"input_data"`
}

// RequireSharedSecret rejects requests whose bearer token does not match
// the pre-shared worker secret.
func (h *WorkerHandlers) RequireSharedSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.SharedSecret)) != 1 {
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: string(apperrors.ErrCodeUnauthorized),
				Err:     errors.New("invalid or missing bearer token"),
			})
			return
		}
		next(w, r)
	}
}

// Execute handles POST /internal/execute: runs the review pipeline for a
// paid job on behalf of the API service and returns the report.
func (h *WorkerHandlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.InputData == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: string(apperrors.ErrCodeValidation),
			Err:     errors.New("input_data is required"),
		})
		return
	}
	if err := req.InputData.Validate(); err != nil {
		WriteAppError(w, apperrors.Validation(err.Error()))
		return
	}

	if h.Logger != nil {
		h.Logger.InfoContext(r.Context(), "executing job on worker",
			"job_id", req.JobID,
			"worker_request_id", r.Header.Get(WorkerRequestIDHeader))
	}

	params, err := h.analyzeParams(r, req.InputData)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	report, err := h.Analyzer.Analyze(r.Context(), *params)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// analyzeParams resolves the findings report and sources, running the
// auto-scan when the input asks for one.
func (h *WorkerHandlers) analyzeParams(r *http.Request, input *model.ReviewRequest) (*core.AnalyzeParams, error) {
	if input.ScanMode == model.ScanModeAuto {
		if h.Scanner == nil {
			return nil, apperrors.Analyzer("auto scan_mode is not available on this worker")
		}
		var (
			result *core.ScanResult
			err    error
		)
		if strings.TrimSpace(input.RepoURL) != "" {
			result, err = h.Scanner.ScanRepo(r.Context(), input.RepoURL, input.RepoRef, input.RepoSubpath)
		} else {
			result, err = h.Scanner.ScanSourceFiles(r.Context(), input.SourceFiles)
		}
		if err != nil {
			return nil, err
		}
		return &core.AnalyzeParams{
			Report:      result.Report,
			SourceFiles: result.SourceFiles,
			ReviewDepth: input.ReviewDepth,
		}, nil
	}

	report, err := model.ParseAikidoReport([]byte(input.AikidoReport))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "parse findings report")
	}
	return &core.AnalyzeParams{
		Report:      report,
		SourceFiles: input.SourceFiles,
		ReviewDepth: input.ReviewDepth,
	}, nil
}
