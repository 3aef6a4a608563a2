package config

import "time"

// PaymentConfig contains Masumi payment service configuration.
type PaymentConfig struct {
	// ServiceURL is the base URL of the Masumi payment service.
	ServiceURL string `env:"PAYMENT_SERVICE_URL" envDefault:"http://localhost:3001/api/v1"`

	// APIKey authenticates calls to the payment service.
	APIKey string `env:"PAYMENT_API_KEY"`

	// AgentIdentifier is this agent's on-chain identity.
	AgentIdentifier string `env:"AGENT_IDENTIFIER"`

	// SellerVKey is the seller verification key buyers pay against.
	SellerVKey string `env:"SELLER_VKEY"`

	// Network is the target chain network.
	Network string `env:"NETWORK" envDefault:"Preprod"`

	// PollInterval is the payment confirmation poll cadence.
	PollInterval time.Duration `env:"PAYMENT_POLL_INTERVAL" envDefault:"10s"`
}
