package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/data"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

// RouterConfig is the process-wide canary policy, resolved once at start and
// immutable for the process lifetime.
type RouterConfig struct {
	// Enabled gates the kodosumi backend entirely. Disabled means every job
	// runs on the default backend, explicit selectors included.
	Enabled bool
	// Timeout bounds a single worker invocation.
	Timeout time.Duration
	// FallbackOnError re-runs a failed remote execution locally.
	FallbackOnError bool
}

// ExecutionRouterOptions groups dependencies for ExecutionRouter.
type ExecutionRouterOptions struct {
	Worker core.WorkerInvoker // Required when Config.Enabled
	Config RouterConfig
	Logger *slog.Logger      // Optional: structured logger
	Time   data.TimeProvider // Optional: clock override
}

// ExecutionRouter decides, per job, whether the review pipeline runs
// in-process or on the remote worker, and applies the timeout and fallback
// policy around the remote path. Routing is a pure function of the job input
// and the immutable config.
type ExecutionRouter struct {
	worker core.WorkerInvoker
	config RouterConfig
	logger *slog.Logger
	time   data.TimeProvider
}

// NewExecutionRouter constructs a new ExecutionRouter.
func NewExecutionRouter(opts ExecutionRouterOptions) (*ExecutionRouter, error) {
	if opts.Config.Enabled && opts.Worker == nil {
		return nil, errors.New("WorkerInvoker is required when the canary backend is enabled")
	}
	if opts.Config.Enabled && opts.Config.Timeout <= 0 {
		return nil, errors.New("worker timeout must be positive when the canary backend is enabled")
	}
	if opts.Time == nil {
		opts.Time = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "execution_router")
	}

	return &ExecutionRouter{
		worker: opts.Worker,
		config: opts.Config,
		logger: logger,
		time:   opts.Time,
	}, nil
}

// MustNewExecutionRouter constructs a new ExecutionRouter and panics on error.
func MustNewExecutionRouter(opts ExecutionRouterOptions) *ExecutionRouter {
	r, err := NewExecutionRouter(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ExecutionRouter: %v", err))
	}
	return r
}

// canaryTruthy reports whether a request marker value opts into the canary.
func canaryTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Resolve picks the execution backend for a job. The explicit selector takes
// precedence over the canary marker; a disabled canary always resolves to
// the default backend.
func (r *ExecutionRouter) Resolve(requested model.ExecutionBackend, canaryMarker string) model.ExecutionBackend {
	if !r.config.Enabled {
		return model.BackendDefault
	}
	if requested != "" {
		return requested
	}
	if canaryTruthy(canaryMarker) {
		return model.BackendKodosumi
	}
	return model.BackendDefault
}

// Execute runs the job on its resolved backend. local is the in-process
// pipeline; the router invokes it directly for the default backend and as
// the fallback for a failed remote attempt. Returned meta always carries the
// wall-clock duration of the whole call, fallback included.
func (r *ExecutionRouter) Execute(
	ctx context.Context,
	job *model.Job,
	local func(ctx context.Context) (*model.ReviewReport, error),
) (*model.ReviewReport, model.ExecutionMeta, error) {
	start := r.time.Now()
	meta := model.ExecutionMeta{}

	finish := func(report *model.ReviewReport, err error) (*model.ReviewReport, model.ExecutionMeta, error) {
		meta.DurationMs = r.time.Now().Sub(start).Milliseconds()
		return report, meta, err
	}

	if job.Backend != model.BackendKodosumi {
		report, err := local(ctx)
		return finish(report, err)
	}

	workerCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	result, workerErr := r.worker.Invoke(workerCtx, job, r.config.Timeout)
	cancel()

	if workerErr == nil {
		meta.WorkerRequestID = &result.WorkerRequestID
		return finish(result.Report, nil)
	}

	// Repeated unauthorized failures mean a shared-secret misconfiguration,
	// not transient worker unavailability. Surface loudly even when the
	// fallback hides them from buyers.
	if apperrors.IsUnauthorized(workerErr) && r.logger != nil {
		r.logger.ErrorContext(ctx, "worker rejected shared secret",
			"job_id", job.ID, "error", workerErr)
	}

	if !r.config.FallbackOnError {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "worker execution failed, fallback disabled",
				"job_id", job.ID, "error", workerErr)
		}
		if apperrors.IsTimeout(workerErr) || apperrors.IsUnauthorized(workerErr) {
			return finish(nil, workerErr)
		}
		return finish(nil, apperrors.Wrap(workerErr, apperrors.ErrCodeWorkerExecution, "worker execution failed"))
	}

	if r.logger != nil {
		r.logger.WarnContext(ctx, "worker execution failed, falling back to local",
			"job_id", job.ID, "error", workerErr)
	}

	meta.FallbackUsed = true
	meta.WorkerRequestID = nil

	report, localErr := local(ctx)
	if localErr != nil {
		// Both paths failed. The local failure is terminal; the worker
		// failure rides along as context.
		return finish(nil, fmt.Errorf("%w (after worker failure: %v)", localErr, workerErr))
	}
	return finish(report, nil)
}
