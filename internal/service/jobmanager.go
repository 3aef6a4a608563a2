package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/data"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

const defaultExecutionDeadline = 15 * time.Minute

const defaultReportCacheTTL = 24 * time.Hour

// defaultConfirmationMarkTTL keeps a confirmation dedup mark alive well past
// the payment window so late duplicate callbacks still hit it.
const defaultConfirmationMarkTTL = 48 * time.Hour

// purchaserIDLen is the length of the generated purchaser correlation id.
const purchaserIDLen = 24

// SubmitResponse is returned to a buyer after a successful submission: the
// job handle plus everything needed to complete payment.
type SubmitResponse struct {
	JobID   string                `json:"job_id"`
	Payment *model.PaymentRequest `json:"payment"`
}

// paymentConfirmations deduplicates payment confirmation callbacks across
// processes. The in-memory state machine stays authoritative; this is a
// shared-state guard for multi-instance deployments.
type paymentConfirmations interface {
	MarkPaymentConfirmed(ctx context.Context, paymentID string, ttl time.Duration) (bool, error)
}

// JobManagerOptions groups dependencies for JobManager.
type JobManagerOptions struct {
	Store             core.JobStore         // Required: job state
	Gateway           core.PaymentGateway   // Required: payment collaborator
	Router            *ExecutionRouter      // Required: backend routing
	Analyzer          core.Analyzer         // Required: local review pipeline
	Scanner           core.Scanner          // Optional: required for auto-scan jobs
	Archive           core.JobArchive       // Optional: terminal job persistence
	Cache             core.CacheRepository  // Optional: review report cache
	Confirmations     paymentConfirmations  // Optional: cross-process confirmation dedup
	Logger            *slog.Logger          // Optional: structured logger
	Time              data.TimeProvider     // Optional: clock override
	ExecutionDeadline time.Duration         // Optional: overall execution deadline
	ReportCacheTTL    time.Duration         // Optional: cached report lifetime
	ConfirmationTTL   time.Duration         // Optional: confirmation dedup mark lifetime
	AllowedRepoHosts  []string              // Optional: auto-scan clone allow-list
	NewID             func() string         // Optional: job id generator override
}

// JobManager owns the job lifecycle: submission, payment gating, execution
// dispatch and terminal result recording. All job mutations go through the
// store's per-job writer lock; the state machine is one-directional and a
// paid job executes at most once regardless of duplicate confirmations.
type JobManager struct {
	store             core.JobStore
	gateway           core.PaymentGateway
	router            *ExecutionRouter
	analyzer          core.Analyzer
	scanner           core.Scanner
	archive           core.JobArchive
	cache             core.CacheRepository
	confirmations     paymentConfirmations
	logger            *slog.Logger
	time              data.TimeProvider
	executionDeadline time.Duration
	reportCacheTTL    time.Duration
	confirmationTTL   time.Duration
	allowedRepoHosts  []string
	newID             func() string
}

// NewJobManager constructs a new JobManager.
func NewJobManager(opts JobManagerOptions) (*JobManager, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("PaymentGateway is required")
	}
	if opts.Router == nil {
		return nil, errors.New("ExecutionRouter is required")
	}
	if opts.Analyzer == nil {
		return nil, errors.New("Analyzer is required")
	}
	if opts.Time == nil {
		opts.Time = &data.RealTimeProvider{}
	}
	if opts.ExecutionDeadline <= 0 {
		opts.ExecutionDeadline = defaultExecutionDeadline
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = defaultReportCacheTTL
	}
	if opts.ConfirmationTTL <= 0 {
		opts.ConfirmationTTL = defaultConfirmationMarkTTL
	}
	if len(opts.AllowedRepoHosts) == 0 {
		opts.AllowedRepoHosts = DefaultAllowedRepoHosts
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_manager")
	}

	return &JobManager{
		store:             opts.Store,
		gateway:           opts.Gateway,
		router:            opts.Router,
		analyzer:          opts.Analyzer,
		scanner:           opts.Scanner,
		archive:           opts.Archive,
		cache:             opts.Cache,
		confirmations:     opts.Confirmations,
		logger:            logger,
		time:              opts.Time,
		executionDeadline: opts.ExecutionDeadline,
		reportCacheTTL:    opts.ReportCacheTTL,
		confirmationTTL:   opts.ConfirmationTTL,
		allowedRepoHosts:  opts.AllowedRepoHosts,
		newID:             opts.NewID,
	}, nil
}

// MustNewJobManager constructs a new JobManager and panics on error.
func MustNewJobManager(opts JobManagerOptions) *JobManager {
	m, err := NewJobManager(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create JobManager: %v", err))
	}
	return m
}

// newPurchaserID generates the purchaser-side correlation id sent with a
// payment request.
func (m *JobManager) newPurchaserID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > purchaserIDLen {
		id = id[:purchaserIDLen]
	}
	return id
}

// Submit validates a review request, creates the job and its payment
// request, and starts watching for confirmation. Validation and gateway
// failures create no job.
func (m *JobManager) Submit(ctx context.Context, req *model.ReviewRequest, canaryMarker string) (*SubmitResponse, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if req.ScanMode == model.ScanModeAuto {
		if m.scanner == nil && strings.TrimSpace(req.RepoURL) == "" && len(req.SourceFiles) == 0 {
			return nil, apperrors.Validation("auto scan_mode is not available on this deployment")
		}
		if strings.TrimSpace(req.RepoURL) != "" {
			if err := model.ValidateRepoURL(req.RepoURL, m.allowedRepoHosts); err != nil {
				return nil, apperrors.Validation(err.Error())
			}
		}
	}

	jobID := m.newID()
	backend := m.router.Resolve(req.ExecutionBackend, canaryMarker)

	payment, err := m.gateway.CreatePaymentRequest(ctx, core.CreatePaymentParams{
		IdentifierFromPurchaser: m.newPurchaserID(),
		InputData:               req,
	})
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodePayment {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodePayment, "create payment request")
	}

	job := &model.Job{
		ID:             jobID,
		State:          model.JobStateAwaitingPayment,
		PaymentStatus:  model.PaymentStatusPending,
		PaymentRequest: payment,
		Input:          req,
		Backend:        backend,
	}
	if err := m.store.Create(ctx, job); err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.InfoContext(ctx, "job submitted",
			"job_id", jobID,
			"scan_mode", req.ScanMode,
			"execution_backend", backend,
			"payment_id", payment.PaymentID)
	}

	// The watch must outlive the submission request.
	watchCtx := context.WithoutCancel(ctx)
	m.gateway.WatchConfirmation(watchCtx, payment.PaymentID, func(paymentID string) {
		if err := m.OnPaymentConfirmed(watchCtx, jobID); err != nil {
			if m.logger != nil {
				m.logger.ErrorContext(watchCtx, "payment confirmation handling failed",
					"job_id", jobID, "payment_id", paymentID, "error", err)
			}
		}
	})

	return &SubmitResponse{JobID: jobID, Payment: payment}, nil
}

// OnPaymentConfirmed advances a job past the payment gate and dispatches
// execution exactly once. Confirmations for jobs already past
// awaiting_payment are no-ops; duplicate deliveries are expected and safe.
func (m *JobManager) OnPaymentConfirmed(ctx context.Context, jobID string) error {
	dispatch := false
	job, err := m.store.Update(ctx, jobID, func(job *model.Job) error {
		if job.State != model.JobStateAwaitingPayment {
			return nil
		}
		if job.ExecutionStarts {
			return nil
		}
		if m.confirmations != nil && job.PaymentRequest != nil {
			first, err := m.confirmations.MarkPaymentConfirmed(ctx, job.PaymentRequest.PaymentID, m.confirmationTTL)
			if err != nil {
				// The in-memory guard is authoritative; a cache outage must
				// not block a paid job.
				if m.logger != nil {
					m.logger.WarnContext(ctx, "confirmation dedup unavailable",
						"job_id", job.ID, "error", err)
				}
			} else if !first {
				return nil
			}
		}
		job.State = model.JobStatePaid
		job.State = model.JobStateExecuting
		job.PaymentStatus = model.PaymentStatusCompleted
		job.ExecutionStarts = true
		dispatch = true
		return nil
	})
	if err != nil {
		return err
	}
	if !dispatch {
		return nil
	}

	if m.logger != nil {
		m.logger.InfoContext(ctx, "payment confirmed, executing job", "job_id", job.ID)
	}

	execCtx := context.WithoutCancel(ctx)
	go m.execute(execCtx, job.ID)
	return nil
}

// Status returns a read-only snapshot of the job. While the job awaits
// payment the gateway status is refreshed best-effort so buyers see
// settlement progress.
func (m *JobManager) Status(ctx context.Context, jobID string) (*model.JobView, error) {
	job, err := m.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.State == model.JobStateAwaitingPayment && job.PaymentRequest != nil {
		if status, err := m.gateway.CheckStatus(ctx, job.PaymentRequest.PaymentID); err == nil && status != "" {
			job.PaymentStatus = status
			if updated, err := m.store.Update(ctx, jobID, func(j *model.Job) error {
				if j.State == model.JobStateAwaitingPayment {
					j.PaymentStatus = status
				}
				return nil
			}); err == nil {
				job = updated
			}
		}
	}

	return job.View(), nil
}

// execute runs the full post-payment pipeline for one job under the overall
// execution deadline and records the terminal state. Never returns an error;
// every failure lands on the job.
func (m *JobManager) execute(ctx context.Context, jobID string) {
	ctx, cancel := context.WithTimeout(ctx, m.executionDeadline)
	defer cancel()

	job, err := m.store.Get(ctx, jobID)
	if err != nil {
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "executing unknown job", "job_id", jobID, "error", err)
		}
		return
	}

	report, meta, err := m.router.Execute(ctx, job, func(ctx context.Context) (*model.ReviewReport, error) {
		return m.runLocal(ctx, job)
	})

	// Terminal recording must survive a blown execution deadline.
	recordCtx := context.WithoutCancel(ctx)

	if err != nil {
		m.failJob(recordCtx, jobID, meta, err, ctx.Err())
		return
	}

	completed, err := m.store.Update(recordCtx, jobID, func(j *model.Job) error {
		if !j.State.CanTransitionTo(model.JobStateCompleted) {
			return apperrors.Internalf("job %s cannot complete from state %s", j.ID, j.State)
		}
		j.State = model.JobStateCompleted
		j.ExecutionMeta = &meta
		j.Result = report
		j.Error = nil
		return nil
	})
	if err != nil {
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "recording job completion failed", "job_id", jobID, "error", err)
		}
		return
	}

	ctx = recordCtx
	if m.logger != nil {
		m.logger.InfoContext(ctx, "job completed",
			"job_id", jobID,
			"duration_ms", meta.DurationMs,
			"fallback_used", meta.FallbackUsed,
			"risk_level", report.RiskLevel)
	}

	// Result delivery to the payment service unlocks the payment. Best
	// effort: the job result stands even if the unlock call fails.
	if completed.PaymentRequest != nil {
		if err := m.gateway.CompletePayment(ctx, completed.PaymentRequest.PaymentID, report); err != nil {
			if m.logger != nil {
				m.logger.ErrorContext(ctx, "complete payment failed",
					"job_id", jobID, "payment_id", completed.PaymentRequest.PaymentID, "error", err)
			}
		}
	}

	m.archiveJob(ctx, completed)
}

// runLocal executes the in-process pipeline: optional auto-scan, report
// cache lookup, then analysis.
func (m *JobManager) runLocal(ctx context.Context, job *model.Job) (*model.ReviewReport, error) {
	params, err := m.analyzeParams(ctx, job)
	if err != nil {
		return nil, err
	}

	cacheKey := m.reportCacheKey(job)
	if cacheKey != "" {
		if cached, err := m.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var report model.ReviewReport
			if err := json.Unmarshal(cached, &report); err == nil {
				if m.logger != nil {
					m.logger.InfoContext(ctx, "serving cached review report", "job_id", job.ID)
				}
				return &report, nil
			}
		}
	}

	report, err := m.analyzer.Analyze(ctx, *params)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if encoded, err := json.Marshal(report); err == nil {
			if err := m.cache.Set(ctx, cacheKey, encoded, m.reportCacheTTL); err != nil && m.logger != nil {
				m.logger.WarnContext(ctx, "report cache write failed", "job_id", job.ID, "error", err)
			}
		}
	}

	return report, nil
}

// reportCacheKey keys the report cache on the payment input hash, which
// commits the full submitted input.
func (m *JobManager) reportCacheKey(job *model.Job) string {
	if m.cache == nil || job.PaymentRequest == nil || job.PaymentRequest.InputHash == "" {
		return ""
	}
	return data.ReportCacheKey(job.PaymentRequest.InputHash)
}

// analyzeParams resolves the findings report and sources for analysis,
// running the auto-scan when the submission asked for one.
func (m *JobManager) analyzeParams(ctx context.Context, job *model.Job) (*core.AnalyzeParams, error) {
	input := job.Input
	if input == nil {
		return nil, apperrors.Internal("job has no input")
	}

	if input.ScanMode == model.ScanModeAuto {
		if m.scanner == nil {
			return nil, apperrors.Analyzer("auto scan_mode is not available on this deployment")
		}

		var (
			result   *core.ScanResult
			scanMode string
			err      error
		)
		if strings.TrimSpace(input.RepoURL) != "" {
			scanMode = "repo"
			result, err = m.scanner.ScanRepo(ctx, input.RepoURL, input.RepoRef, input.RepoSubpath)
		} else {
			scanMode = "source_files"
			result, err = m.scanner.ScanSourceFiles(ctx, input.SourceFiles)
		}
		if err != nil {
			return nil, err
		}

		if _, uerr := m.store.Update(ctx, job.ID, func(j *model.Job) error {
			j.ScanSummary = &model.ScanSummary{
				SchemaVersion: result.Report.SchemaVersion,
				TotalFindings: len(result.Report.Findings),
				ScanMode:      scanMode,
			}
			return nil
		}); uerr != nil && m.logger != nil {
			m.logger.WarnContext(ctx, "recording scan summary failed", "job_id", job.ID, "error", uerr)
		}

		return &core.AnalyzeParams{
			Report:      result.Report,
			SourceFiles: result.SourceFiles,
			ReviewDepth: input.ReviewDepth,
		}, nil
	}

	report, err := model.ParseAikidoReport([]byte(input.AikidoReport))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "parse findings report")
	}
	return &core.AnalyzeParams{
		Report:      report,
		SourceFiles: input.SourceFiles,
		ReviewDepth: input.ReviewDepth,
	}, nil
}

// failJob records a terminal failure, mapping the error to its taxonomy
// kind. A deadline overrun surfaces as a timeout, never a stuck job.
func (m *JobManager) failJob(ctx context.Context, jobID string, meta model.ExecutionMeta, execErr, deadlineErr error) {
	kind := apperrors.GetCode(execErr)
	if errors.Is(execErr, context.DeadlineExceeded) || errors.Is(deadlineErr, context.DeadlineExceeded) {
		kind = apperrors.ErrCodeTimeout
	}
	if kind == "" {
		kind = apperrors.ErrCodeInternal
	}

	failed, err := m.store.Update(ctx, jobID, func(j *model.Job) error {
		if j.State.Terminal() {
			return nil
		}
		j.State = model.JobStateFailed
		j.ExecutionMeta = &meta
		j.Result = nil
		j.Error = &model.JobError{
			Kind:    string(kind),
			Message: execErr.Error(),
		}
		return nil
	})
	if err != nil {
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "recording job failure failed", "job_id", jobID, "error", err)
		}
		return
	}

	if m.logger != nil {
		m.logger.ErrorContext(ctx, "job failed",
			"job_id", jobID, "kind", kind, "error", execErr)
	}

	m.archiveJob(ctx, failed)
}

// archiveJob persists a terminal job best-effort.
func (m *JobManager) archiveJob(ctx context.Context, job *model.Job) {
	if m.archive == nil || job == nil {
		return
	}
	if err := m.archive.ArchiveJob(ctx, job); err != nil && m.logger != nil {
		m.logger.WarnContext(ctx, "job archive failed", "job_id", job.ID, "error", err)
	}
}
