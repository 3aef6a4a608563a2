package httpx

import (
	"errors"
	"net/http"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	"github.com/sokosumi/aikido-reviewer/internal/service"
)

// JobHandlers provides HTTP handlers for the buyer-facing job API.
type JobHandlers struct {
	Manager *service.JobManager
	// CanaryMarkerName is the request header that opts a job into the
	// canary backend when no explicit selector is present.
	CanaryMarkerName string
}

// StartJob handles POST /start_job: validates the submission, creates the
// job and returns the payment handle per MIP-003.
func (h *JobHandlers) StartJob(w http.ResponseWriter, r *http.Request) {
	var req model.ReviewRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	canaryMarker := ""
	if h.CanaryMarkerName != "" {
		canaryMarker = r.Header.Get(h.CanaryMarkerName)
	}

	resp, err := h.Manager.Submit(r.Context(), &req, canaryMarker)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	payment := resp.Payment
	WriteJSON(w, http.StatusOK, map[string]any{
		"job_id":                    resp.JobID,
		"payment_id":                payment.PaymentID,
		"blockchainIdentifier":      payment.PaymentID,
		"identifierFromPurchaser":   payment.IdentifierFromPurchaser,
		"agentIdentifier":           payment.AgentIdentifier,
		"sellerVkey":                payment.SellerVKey,
		"network":                   payment.Network,
		"paymentType":               payment.PaymentType,
		"inputHash":                 payment.InputHash,
		"submitResultTime":          payment.SubmitResultTime,
		"unlockTime":                payment.UnlockTime,
		"externalDisputeUnlockTime": payment.ExternalDisputeUnlockTime,
	})
}

// GetStatus handles GET /status?job_id=: returns the job's lifecycle
// snapshot including execution metadata and the result or terminal error.
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_query",
			Err:     errors.New("job_id query parameter is required"),
		})
		return
	}

	view, err := h.Manager.Status(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, view)
}
