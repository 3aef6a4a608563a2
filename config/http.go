package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address the buyer-facing API server binds to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// WorkerAddr is the address the execution worker binds to when the
	// worker service is enabled.
	WorkerAddr string `env:"WORKER_HTTP_ADDR" envDefault:":8081"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	if h.WorkerAddr == "" {
		h.WorkerAddr = ":8081"
	}
}
