package model

// PaymentRequest is the handle returned by the payment gateway when a review
// job is submitted. Every field is resolved from the gateway response; none
// are invented locally. Immutable once attached to a job.
type PaymentRequest struct {
	// PaymentID is the blockchain identifier of the payment request.
	PaymentID string `json:"payment_id"`
	// IdentifierFromPurchaser is the purchaser-side correlation id sent with
	// the payment request.
	IdentifierFromPurchaser string `json:"identifier_from_purchaser"`
	// AgentIdentifier is the on-chain identity of this agent.
	AgentIdentifier string `json:"agent_identifier"`
	// SellerVKey is the seller verification key a buyer pays against.
	SellerVKey string `json:"seller_vkey"`
	// Network is the target chain network (e.g. Preprod, Mainnet).
	Network string `json:"network"`
	// PaymentType identifies the settlement scheme.
	PaymentType string `json:"payment_type"`
	// Amount and Unit describe the requested price, when the gateway
	// returns them.
	Amount string `json:"amount,omitempty"`
	Unit   string `json:"unit,omitempty"`
	// InputHash commits the submitted input data.
	InputHash string `json:"input_hash"`
	// SubmitResultTime, UnlockTime and ExternalDisputeUnlockTime are the
	// timing bounds of the payment window, as reported by the gateway.
	SubmitResultTime          string `json:"submit_result_time"`
	UnlockTime                string `json:"unlock_time"`
	ExternalDisputeUnlockTime string `json:"external_dispute_unlock_time"`
}

// Payment status values mirrored from the gateway. The job manager treats
// these as opaque strings; only the confirmation signal advances the
// lifecycle.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusUnknown   = "unknown"
)
