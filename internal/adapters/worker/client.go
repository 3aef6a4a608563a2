// Package worker implements the authenticated client for the remote
// execution worker.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

// RequestIDHeader carries the per-call tracing id to the worker.
const RequestIDHeader = "x-worker-request-id"

const executePath = "/internal/execute"

const maxErrorBodyQuoted = 300

// ClientOptions groups configuration for the worker client.
type ClientOptions struct {
	Endpoint     string       // Required: worker base URL
	SharedSecret string       // Required: bearer token the worker validates
	HTTPClient   *http.Client // Optional: transport override
	Logger       *slog.Logger // Optional: structured logger
}

// Client implements core.WorkerInvoker over the worker's internal HTTP API.
// Stateless between calls; safe for concurrent use.
type Client struct {
	endpoint     string
	sharedSecret string
	client       *http.Client
	logger       *slog.Logger
}

// NewClient constructs a new worker Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("worker endpoint is required")
	}
	if opts.SharedSecret == "" {
		return nil, errors.New("worker shared secret is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "worker_client")
	}

	return &Client{
		endpoint:     strings.TrimRight(opts.Endpoint, "/"),
		sharedSecret: opts.SharedSecret,
		client:       opts.HTTPClient,
		logger:       logger,
	}, nil
}

// MustNewClient constructs a new worker Client and panics on error.
func MustNewClient(opts ClientOptions) *Client {
	c, err := NewClient(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create worker client: %v", err))
	}
	return c
}

// ExecutePayload is the request body of POST /internal/execute.
type ExecutePayload struct {
	JobID     string               `json:"job_id"`
	PaymentID string               `json:"payment_id"`
	InputData *model.ReviewRequest `json:"input_data"`
}

// Invoke implements core.WorkerInvoker: one authenticated POST, no retry.
// A deadline overrun maps to a timeout error, HTTP 401 to unauthorized, and
// everything else to a worker execution error.
func (c *Client) Invoke(ctx context.Context, job *model.Job, timeout time.Duration) (*core.WorkerResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")

	paymentID := ""
	if job.PaymentRequest != nil {
		paymentID = job.PaymentRequest.PaymentID
	}
	payload := ExecutePayload{
		JobID:     job.ID,
		PaymentID: paymentID,
		InputData: job.Input,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeWorkerExecution, "encode worker payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+executePath, bytes.NewReader(encoded))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeWorkerExecution, "build worker request")
	}
	req.Header.Set("Authorization", "Bearer "+c.sharedSecret)
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.InfoContext(ctx, "invoking worker",
			"job_id", job.ID, "worker_request_id", requestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Timeout("worker call timed out")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeWorkerExecution, "worker request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.Unauthorized("worker rejected shared secret")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyQuoted))
		return nil, apperrors.WorkerExecution(fmt.Sprintf(
			"worker returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	var report model.ReviewReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeWorkerExecution, "decode worker response")
	}
	if report.SchemaVersion == "" {
		return nil, apperrors.WorkerExecution("worker returned an empty report payload")
	}

	return &core.WorkerResult{
		Report:          &report,
		WorkerRequestID: requestID,
	}, nil
}
