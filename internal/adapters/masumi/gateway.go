// Package masumi implements the payment gateway port over the Masumi
// payment-service HTTP API. The adapter never invents payment fields; every
// value on a payment handle is resolved from a gateway response.
package masumi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultPollInterval   = 10 * time.Second
	defaultPaymentType    = "Web3CardanoV1"

	apiKeyHeader = "token"

	maxErrorBodyQuoted = 300
)

// On-chain states reported by the payment service. FundsLocked is the
// confirmation signal: the buyer's funds are escrowed and execution may
// start. Later states are terminal for monitoring purposes.
const (
	stateFundsLocked     = "FundsLocked"
	stateResultSubmitted = "ResultSubmitted"
	stateWithdrawn       = "Withdrawn"
	stateRefundWithdrawn = "RefundWithdrawn"
)

// GatewayOptions groups configuration for the Masumi gateway adapter.
type GatewayOptions struct {
	BaseURL         string // Required: payment service base URL
	APIKey          string // Required: payment service API key
	AgentIdentifier string // Required: this agent's on-chain identity
	SellerVKey      string // Required: seller verification key
	Network         string // Required: e.g. "Preprod" or "Mainnet"
	HTTPClient      *http.Client  // Optional: transport override
	PollInterval    time.Duration // Optional: confirmation poll cadence
	Logger          *slog.Logger  // Optional: structured logger
}

// Gateway implements core.PaymentGateway against the Masumi payment service.
type Gateway struct {
	baseURL         string
	apiKey          string
	agentIdentifier string
	sellerVKey      string
	network         string
	client          *http.Client
	pollInterval    time.Duration
	logger          *slog.Logger
}

// NewGateway constructs a new Gateway.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("payment service base URL is required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("payment service API key is required")
	}
	if opts.AgentIdentifier == "" {
		return nil, errors.New("agent identifier is required")
	}
	if opts.Network == "" {
		return nil, errors.New("network is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "masumi_gateway")
	}

	return &Gateway{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		apiKey:          opts.APIKey,
		agentIdentifier: opts.AgentIdentifier,
		sellerVKey:      opts.SellerVKey,
		network:         opts.Network,
		client:          opts.HTTPClient,
		pollInterval:    opts.PollInterval,
		logger:          logger,
	}, nil
}

// MustNewGateway constructs a new Gateway and panics on error.
func MustNewGateway(opts GatewayOptions) *Gateway {
	g, err := NewGateway(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create masumi gateway: %v", err))
	}
	return g
}

// createPaymentBody is the request payload of POST /payment/.
type createPaymentBody struct {
	AgentIdentifier         string `json:"agentIdentifier"`
	Network                 string `json:"network"`
	PaymentType             string `json:"paymentType"`
	IdentifierFromPurchaser string `json:"identifierFromPurchaser"`
	InputHash               string `json:"inputHash"`
}

// paymentData is the data envelope the payment service returns for a
// payment request.
type paymentData struct {
	BlockchainIdentifier      string          `json:"blockchainIdentifier"`
	InputHash                 string          `json:"inputHash"`
	SubmitResultTime          json.RawMessage `json:"submitResultTime"`
	UnlockTime                json.RawMessage `json:"unlockTime"`
	ExternalDisputeUnlockTime json.RawMessage `json:"externalDisputeUnlockTime"`
	OnChainState              string          `json:"onChainState"`
	RequestedFunds            []struct {
		Amount string `json:"amount"`
		Unit   string `json:"unit"`
	} `json:"RequestedFunds"`
}

type paymentEnvelope struct {
	Data paymentData `json:"data"`
}

type paymentListEnvelope struct {
	Data struct {
		Payments []paymentData `json:"Payments"`
	} `json:"data"`
}

// inputHash commits the submitted input data for the payment request.
func inputHash(input *model.ReviewRequest) (string, error) {
	encoded, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encode input data: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// CreatePaymentRequest implements core.PaymentGateway.
func (g *Gateway) CreatePaymentRequest(ctx context.Context, params core.CreatePaymentParams) (*model.PaymentRequest, error) {
	hash, err := inputHash(params.InputData)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePayment, "create payment request")
	}

	body := createPaymentBody{
		AgentIdentifier:         g.agentIdentifier,
		Network:                 g.network,
		PaymentType:             defaultPaymentType,
		IdentifierFromPurchaser: params.IdentifierFromPurchaser,
		InputHash:               hash,
	}

	var envelope paymentEnvelope
	if err := g.do(ctx, http.MethodPost, "/payment/", body, &envelope); err != nil {
		return nil, err
	}

	data := envelope.Data
	if data.BlockchainIdentifier == "" {
		return nil, apperrors.Payment("payment service returned no blockchain identifier")
	}

	request := &model.PaymentRequest{
		PaymentID:                 data.BlockchainIdentifier,
		IdentifierFromPurchaser:   params.IdentifierFromPurchaser,
		AgentIdentifier:           g.agentIdentifier,
		SellerVKey:                g.sellerVKey,
		Network:                   g.network,
		PaymentType:               defaultPaymentType,
		InputHash:                 data.InputHash,
		SubmitResultTime:          rawString(data.SubmitResultTime),
		UnlockTime:                rawString(data.UnlockTime),
		ExternalDisputeUnlockTime: rawString(data.ExternalDisputeUnlockTime),
	}
	if len(data.RequestedFunds) > 0 {
		request.Amount = data.RequestedFunds[0].Amount
		request.Unit = data.RequestedFunds[0].Unit
	}

	if g.logger != nil {
		g.logger.InfoContext(ctx, "payment request created",
			"payment_id", request.PaymentID, "network", g.network)
	}

	return request, nil
}

// CheckStatus implements core.PaymentGateway. The on-chain state is mapped
// to the coarse pending/completed mirror jobs expose.
func (g *Gateway) CheckStatus(ctx context.Context, paymentID string) (string, error) {
	state, err := g.onChainState(ctx, paymentID)
	if err != nil {
		return "", err
	}
	switch state {
	case stateFundsLocked, stateResultSubmitted, stateWithdrawn:
		return model.PaymentStatusCompleted, nil
	case "":
		return model.PaymentStatusUnknown, nil
	default:
		return model.PaymentStatusPending, nil
	}
}

// onChainState resolves the current on-chain state for a payment.
func (g *Gateway) onChainState(ctx context.Context, paymentID string) (string, error) {
	var envelope paymentListEnvelope
	path := fmt.Sprintf("/payment/?network=%s&limit=100", g.network)
	if err := g.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return "", err
	}
	for _, p := range envelope.Data.Payments {
		if p.BlockchainIdentifier == paymentID {
			return p.OnChainState, nil
		}
	}
	return "", nil
}

// submitResultBody is the PATCH /payment/ payload unlocking a payment.
type submitResultBody struct {
	Network              string `json:"network"`
	BlockchainIdentifier string `json:"blockchainIdentifier"`
	SubmitResultHash     string `json:"submitResultHash"`
}

// CompletePayment implements core.PaymentGateway: submits the result hash so
// the escrowed payment unlocks.
func (g *Gateway) CompletePayment(ctx context.Context, paymentID string, result *model.ReviewReport) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodePayment, "encode result")
	}
	sum := sha256.Sum256(encoded)

	body := submitResultBody{
		Network:              g.network,
		BlockchainIdentifier: paymentID,
		SubmitResultHash:     hex.EncodeToString(sum[:]),
	}
	if err := g.do(ctx, http.MethodPatch, "/payment/submit-result", body, nil); err != nil {
		return err
	}

	if g.logger != nil {
		g.logger.InfoContext(ctx, "payment result submitted", "payment_id", paymentID)
	}
	return nil
}

// WatchConfirmation implements core.PaymentGateway: polls the payment until
// funds lock, then invokes onConfirmed. Monitoring stops when the payment
// reaches a terminal state or ctx is canceled. Delivery is at-least-once.
func (g *Gateway) WatchConfirmation(ctx context.Context, paymentID string, onConfirmed func(paymentID string)) {
	go func() {
		ticker := time.NewTicker(g.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			state, err := g.onChainState(ctx, paymentID)
			if err != nil {
				if g.logger != nil {
					g.logger.WarnContext(ctx, "payment status poll failed",
						"payment_id", paymentID, "error", err)
				}
				continue
			}

			switch state {
			case stateFundsLocked:
				onConfirmed(paymentID)
				return
			case stateResultSubmitted, stateWithdrawn, stateRefundWithdrawn:
				return
			}
		}
	}()
}

// do performs one JSON request against the payment service.
func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodePayment, "encode request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodePayment, "build request")
	}
	req.Header.Set(apiKeyHeader, g.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodePayment, "payment service request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyQuoted))
		return apperrors.Payment(fmt.Sprintf(
			"payment service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodePayment, "decode payment service response")
	}
	return nil
}

// rawString renders a JSON scalar (string or number) as its string form.
// The payment service is inconsistent about timestamp encoding.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
