// Package core defines the ports between the service layer and its
// collaborators (hexagonal architecture). Service implementations depend on
// these interfaces, never on concrete adapters.
package core

import (
	"context"
	"time"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
)

// CreatePaymentParams groups the inputs of a payment request.
type CreatePaymentParams struct {
	// IdentifierFromPurchaser correlates the request on the buyer side.
	IdentifierFromPurchaser string
	// InputData is the submitted review request, committed via input hash.
	InputData *model.ReviewRequest
}

// PaymentGateway is the payment collaborator. The core only calls it and
// observes its status; settlement and signing are out of scope.
type PaymentGateway interface {
	// CreatePaymentRequest registers a payment request and returns the
	// handle a buyer needs to complete payment.
	CreatePaymentRequest(ctx context.Context, params CreatePaymentParams) (*model.PaymentRequest, error)
	// CheckStatus resolves the current payment status for a payment id.
	CheckStatus(ctx context.Context, paymentID string) (string, error)
	// CompletePayment submits the result hash to unlock the payment.
	CompletePayment(ctx context.Context, paymentID string, result *model.ReviewReport) error
	// WatchConfirmation monitors the payment until it confirms, then calls
	// onConfirmed. Delivery is at-least-once; duplicates are expected.
	// Returns immediately; monitoring runs until ctx is canceled or the
	// payment reaches a terminal status.
	WatchConfirmation(ctx context.Context, paymentID string, onConfirmed func(paymentID string))
}

// AnalyzeParams carries everything the analyzer needs for one review.
type AnalyzeParams struct {
	Report      *model.AikidoReport
	SourceFiles map[string]string
	ReviewDepth string
}

// Analyzer produces a risk-scored review report from findings plus source.
// The classification pipeline behind it (heuristics, LLM passes, report
// assembly) is a capability; the job lifecycle only invokes it.
type Analyzer interface {
	Analyze(ctx context.Context, params AnalyzeParams) (*model.ReviewReport, error)
}

// ScanResult is the output of an auto-scan: the findings report and the
// normalized project sources fed into analysis.
type ScanResult struct {
	Report      *model.AikidoReport
	RawReport   []byte
	SourceFiles map[string]string
}

// Scanner runs the external static-analysis CLI against a project snapshot
// or a cloned repository.
type Scanner interface {
	ScanSourceFiles(ctx context.Context, sourceFiles map[string]string) (*ScanResult, error)
	ScanRepo(ctx context.Context, repoURL, repoRef, repoSubpath string) (*ScanResult, error)
}

// WorkerResult is the payload returned by the remote execution worker.
type WorkerResult struct {
	Report *model.ReviewReport
	// WorkerRequestID is the tracing id attached to the remote call.
	WorkerRequestID string
}

// WorkerInvoker performs one authenticated remote invocation of the analyzer
// capability hosted by the worker service.
type WorkerInvoker interface {
	Invoke(ctx context.Context, job *model.Job, timeout time.Duration) (*WorkerResult, error)
}

// JobStore is the shared mutable job state: a mapping of job id to Job.
// Mutations to a given job are mutually exclusive; reads return consistent
// snapshots and never block on in-flight executions.
type JobStore interface {
	// Create inserts a new job. Fails if the id already exists.
	Create(ctx context.Context, job *model.Job) error
	// Get returns a snapshot of the job, or a not-found error.
	Get(ctx context.Context, id string) (*model.Job, error)
	// Update applies fn to the job under its writer lock. fn returning an
	// error aborts the mutation.
	Update(ctx context.Context, id string, fn func(job *model.Job) error) (*model.Job, error)
}

// JobArchive persists terminal jobs for audit and retention. Best effort:
// archive failures are logged, never surfaced to buyers.
type JobArchive interface {
	ArchiveJob(ctx context.Context, job *model.Job) error
	GetArchivedJob(ctx context.Context, id string) (*model.Job, error)
}

// CacheRepository defines cache operations (Redis-backed in production).
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// LLMMessage is one turn of an LLM conversation.
type LLMMessage struct {
	Role    string
	Content string
}

// LLMRequest describes one completion call.
type LLMRequest struct {
	System    string
	Messages  []LLMMessage
	MaxTokens int
}

// LLMClient is the language-model collaborator used by the deep review
// lanes. Implementations must be safe for concurrent use.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (string, error)
}
