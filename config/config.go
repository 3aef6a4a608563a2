// Package config defines the process configuration of the reviewer,
// loaded once at startup from environment variables and treated as
// immutable for the process lifetime.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for
// details on available environment variables:
//   - http.go: HTTP server configuration
//   - database.go: Archive database and Redis configuration
//   - payment.go: Masumi payment service configuration
//   - execution.go: Canary routing, analyzer and auto-scan configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Services selects which services this process runs, comma-delimited.
	// Valid values: http, worker.
	Services string `env:"SERVICES" envDefault:"http"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Archive database and Redis configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Payment service configuration
	Payment PaymentConfig

	// Execution routing, analysis and auto-scan configuration
	Router   RouterConfig
	Analyzer AnalyzerConfig
	Scan     ScanConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Router.Sanitize()
	c.Analyzer.Sanitize()
	c.Scan.Sanitize()
}

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the buyer-facing API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the internal execution worker.
	ServiceModeWorker ServiceMode = "worker"
)

// ParseServices parses a comma-delimited string of service names and
// returns the enabled services. Unknown names are an error.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, worker)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the API server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsWorkerEnabled returns true if the execution worker service is enabled.
func (c *AppConfig) IsWorkerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeWorker]
}
