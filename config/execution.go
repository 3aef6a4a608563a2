package config

import "time"

// RouterConfig contains canary routing configuration. Resolved once at
// process start; the router treats it as immutable.
type RouterConfig struct {
	// KodosumiEnabled gates the remote worker backend entirely.
	KodosumiEnabled bool `env:"KODOSUMI_ENABLED" envDefault:"false"`

	// WorkerEndpoint is the base URL of the execution worker.
	WorkerEndpoint string `env:"KODOSUMI_INTERNAL_URL" envDefault:""`

	// SharedSecret is the bearer token the worker validates.
	SharedSecret string `env:"KODOSUMI_INTERNAL_TOKEN" envDefault:""`

	// Timeout bounds a single worker invocation.
	Timeout time.Duration `env:"KODOSUMI_TIMEOUT" envDefault:"120s"`

	// MarkerName is the request header that opts a job into the canary
	// when no explicit backend selector is present.
	MarkerName string `env:"KODOSUMI_CANARY_HEADER" envDefault:"x-kodosumi-canary"`

	// FallbackOnError re-runs a failed remote execution locally.
	FallbackOnError bool `env:"KODOSUMI_FALLBACK_ON_ERROR" envDefault:"true"`

	// ExecutionDeadline bounds the full post-payment execution of one job.
	ExecutionDeadline time.Duration `env:"EXECUTION_DEADLINE" envDefault:"15m"`
}

// Sanitize applies guardrails to router configuration values.
func (r *RouterConfig) Sanitize() {
	if r.Timeout <= 0 {
		r.Timeout = 120 * time.Second
	}
	if r.ExecutionDeadline <= 0 {
		r.ExecutionDeadline = 15 * time.Minute
	}
	if r.MarkerName == "" {
		r.MarkerName = "x-kodosumi-canary"
	}
	// An enabled canary without an endpoint/secret cannot route anywhere.
	if r.KodosumiEnabled && (r.WorkerEndpoint == "" || r.SharedSecret == "") {
		r.KodosumiEnabled = false
	}
}

// AnalyzerConfig contains review pipeline configuration.
type AnalyzerConfig struct {
	// AnthropicAPIKey enables the LLM review lanes. Empty means every
	// review degrades to heuristics.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" envDefault:""`

	// Model is the LLM model identifier.
	Model string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`

	// MaxTokens is the per-call token budget.
	MaxTokens int `env:"ANALYZER_MAX_TOKENS" envDefault:"2048"`

	// BatchSize is the number of medium/low findings per batched call.
	BatchSize int `env:"ANALYZER_BATCH_SIZE" envDefault:"5"`

	// MaxConcurrent bounds concurrent LLM calls.
	MaxConcurrent int `env:"ANALYZER_MAX_CONCURRENT" envDefault:"5"`

	// ReportCacheTTL is the redis TTL for cached review reports.
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to analyzer configuration values.
func (a *AnalyzerConfig) Sanitize() {
	if a.MaxTokens < 1 {
		a.MaxTokens = 2048
	}
	if a.BatchSize < 1 {
		a.BatchSize = 5
	}
	if a.MaxConcurrent < 1 {
		a.MaxConcurrent = 5
	}
}

// ScanConfig contains auto-scan configuration.
type ScanConfig struct {
	// AikidoBin is the scanner binary to execute.
	AikidoBin string `env:"AIKIDO_BIN" envDefault:"aikido"`

	// Timeout bounds one scanner run.
	Timeout time.Duration `env:"AIKIDO_TIMEOUT" envDefault:"10m"`

	// CloneTimeout bounds one git clone.
	CloneTimeout time.Duration `env:"AIKIDO_GIT_CLONE_TIMEOUT" envDefault:"3m"`

	// AllowedRepoHosts is the clone host allow-list.
	AllowedRepoHosts []string `env:"ALLOWED_REPO_HOSTS" envDefault:"github.com,gitlab.com,bitbucket.org"`

	// MaxSourceFiles caps collected source files per scan.
	MaxSourceFiles int `env:"MAX_SCAN_SOURCE_FILES" envDefault:"500"`

	// MaxFileBytes caps a single collected file.
	MaxFileBytes int64 `env:"MAX_SCAN_SOURCE_FILE_BYTES" envDefault:"200000"`

	// MaxTotalBytes caps the total collected sources per scan.
	MaxTotalBytes int64 `env:"MAX_SCAN_TOTAL_SOURCE_BYTES" envDefault:"5000000"`
}

// Sanitize applies guardrails to scan configuration values.
func (s *ScanConfig) Sanitize() {
	if s.AikidoBin == "" {
		s.AikidoBin = "aikido"
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Minute
	}
	if s.CloneTimeout <= 0 {
		s.CloneTimeout = 3 * time.Minute
	}
	if s.MaxSourceFiles < 1 {
		s.MaxSourceFiles = 500
	}
	if s.MaxFileBytes < 1 {
		s.MaxFileBytes = 200_000
	}
	if s.MaxTotalBytes < 1 {
		s.MaxTotalBytes = 5_000_000
	}
}
