// Package model defines the core data types and structures used throughout
// the reviewer job system.
package model

import (
	"fmt"
	"strings"
	"time"
)

// JobState represents the lifecycle state of a review job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobState string

const (
	// JobStateSubmitted indicates a job was accepted but no payment request
	// exists yet. This state is transient within Submit.
	JobStateSubmitted JobState = "submitted"
	// JobStateAwaitingPayment indicates a payment request was created and the
	// job is gated on confirmation.
	JobStateAwaitingPayment JobState = "awaiting_payment"
	// JobStatePaid indicates payment was confirmed. This state is transient;
	// the job moves to executing immediately.
	JobStatePaid JobState = "paid"
	// JobStateExecuting indicates the review pipeline is running.
	JobStateExecuting JobState = "executing"
	// JobStateCompleted indicates the review finished and a result is available.
	JobStateCompleted JobState = "completed"
	// JobStateFailed indicates the review terminated with an error.
	JobStateFailed JobState = "failed"
)

// Valid returns true if the JobState is a known state.
func (s JobState) Valid() bool {
	switch s {
	case JobStateSubmitted, JobStateAwaitingPayment, JobStatePaid,
		JobStateExecuting, JobStateCompleted, JobStateFailed:
		return true
	}
	return false
}

// Terminal returns true for states that end the lifecycle.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// CanTransitionTo reports whether moving to next honors the one-directional
// state machine. No state is ever revisited.
func (s JobState) CanTransitionTo(next JobState) bool {
	switch s {
	case JobStateSubmitted:
		return next == JobStateAwaitingPayment || next == JobStateFailed
	case JobStateAwaitingPayment:
		return next == JobStatePaid || next == JobStateFailed
	case JobStatePaid:
		return next == JobStateExecuting || next == JobStateFailed
	case JobStateExecuting:
		return next == JobStateCompleted || next == JobStateFailed
	case JobStateCompleted, JobStateFailed:
		return false
	}
	return false
}

// ExecutionBackend identifies where the review pipeline runs.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ExecutionBackend string

const (
	// BackendDefault runs the analyzer in-process.
	BackendDefault ExecutionBackend = "default"
	// BackendKodosumi delegates execution to the remote Kodosumi worker.
	BackendKodosumi ExecutionBackend = "kodosumi"
)

// Valid returns true if the ExecutionBackend is a known backend.
func (b ExecutionBackend) Valid() bool {
	return b == BackendDefault || b == BackendKodosumi
}

// UnmarshalText implements encoding.TextUnmarshaler so explicit backend
// selectors and env values parse case-insensitively.
func (b *ExecutionBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	if v == "" {
		*b = ""
		return nil
	}
	eb := ExecutionBackend(v)
	if !eb.Valid() {
		return fmt.Errorf("execution backend must be one of: default, kodosumi (got %q)", v)
	}
	*b = eb
	return nil
}

// ExecutionMeta captures how a job was executed. It is populated only after
// execution starts.
type ExecutionMeta struct {
	// WorkerRequestID is the tracing id of the remote worker call.
	// Absent when the job ran locally or the remote attempt was discarded
	// by a fallback.
	WorkerRequestID *string `json:"worker_request_id,omitempty"`
	// DurationMs is the wall-clock duration of the full execution phase,
	// including any fallback attempt. Payment wait time is excluded.
	DurationMs int64 `json:"duration_ms"`
	// FallbackUsed is set only when a remote attempt degraded to local
	// execution. A job routed to the local backend from the start never
	// sets it.
	FallbackUsed bool `json:"fallback_used"`
}

// JobError is the structured terminal error recorded on a failed job.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ScanSummary describes an auto-scan that ran before analysis.
type ScanSummary struct {
	SchemaVersion string `json:"schema_version"`
	TotalFindings int    `json:"total_findings"`
	ScanMode      string `json:"scan_mode"` // "repo" or "source_files"
}

// Job represents one review request and its lifecycle state.
//
// Input and PaymentRequest are immutable once set. State, ExecutionBackend,
// ExecutionMeta, Result and Error are mutated only by the job manager under
// the store's per-job writer lock.
type Job struct {
	ID              string           `json:"id"`
	State           JobState         `json:"state"`
	PaymentStatus   string           `json:"payment_status"`
	PaymentRequest  *PaymentRequest  `json:"payment_request,omitempty"`
	Input           *ReviewRequest   `json:"input,omitempty"`
	Backend         ExecutionBackend `json:"execution_backend,omitempty"`
	ExecutionMeta   *ExecutionMeta   `json:"execution_meta,omitempty"`
	ScanSummary     *ScanSummary     `json:"scan_summary,omitempty"`
	Result          *ReviewReport    `json:"result,omitempty"`
	Error           *JobError        `json:"error,omitempty"`
	ExecutionStarts bool             `json:"-"` // at-most-once dispatch guard
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Clone returns a deep-enough copy for read paths: lifecycle fields are
// value-copied so a poller never observes a partially applied mutation.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.ExecutionMeta != nil {
		meta := *j.ExecutionMeta
		cp.ExecutionMeta = &meta
	}
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	if j.ScanSummary != nil {
		s := *j.ScanSummary
		cp.ScanSummary = &s
	}
	return &cp
}

// JobView is the read-only projection returned by status queries.
type JobView struct {
	JobID         string           `json:"job_id"`
	State         JobState         `json:"status"`
	PaymentStatus string           `json:"payment_status"`
	Backend       ExecutionBackend `json:"execution_backend,omitempty"`
	ExecutionMeta *ExecutionMeta   `json:"execution_meta,omitempty"`
	ScanSummary   *ScanSummary     `json:"scan_summary,omitempty"`
	Result        *ReviewReport    `json:"result,omitempty"`
	Error         *JobError        `json:"error,omitempty"`
}

// View projects the job into its read-only status form.
func (j *Job) View() *JobView {
	cp := j.Clone()
	return &JobView{
		JobID:         cp.ID,
		State:         cp.State,
		PaymentStatus: cp.PaymentStatus,
		Backend:       cp.Backend,
		ExecutionMeta: cp.ExecutionMeta,
		ScanSummary:   cp.ScanSummary,
		Result:        cp.Result,
		Error:         cp.Error,
	}
}
