package bootstrap

import (
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sokosumi/aikido-reviewer/config"
	"github.com/sokosumi/aikido-reviewer/internal/adapters/anthropic"
	"github.com/sokosumi/aikido-reviewer/internal/adapters/masumi"
	"github.com/sokosumi/aikido-reviewer/internal/adapters/worker"
	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/data"
	"github.com/sokosumi/aikido-reviewer/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Manager  *service.JobManager
	Router   *service.ExecutionRouter
	Reviewer *service.ReviewService
	Scanner  *service.ScanService
	Store    *data.MemoryJobStore
	Gateway  core.PaymentGateway
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB // Optional: nil disables the archive
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices builds the full service graph from configuration and shared
// infrastructure.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reviewer, err := buildReviewer(cfg, logger)
	if err != nil {
		return nil, err
	}

	scanner := service.MustNewScanService(service.ScanServiceOptions{
		AikidoBin:        cfg.Scan.AikidoBin,
		ScanTimeout:      cfg.Scan.Timeout,
		CloneTimeout:     cfg.Scan.CloneTimeout,
		AllowedRepoHosts: cfg.Scan.AllowedRepoHosts,
		MaxSourceFiles:   cfg.Scan.MaxSourceFiles,
		MaxFileBytes:     cfg.Scan.MaxFileBytes,
		MaxTotalBytes:    cfg.Scan.MaxTotalBytes,
		Logger:           logger,
	})

	var invoker core.WorkerInvoker
	if cfg.Router.KodosumiEnabled {
		invoker, err = worker.NewClient(worker.ClientOptions{
			Endpoint:     cfg.Router.WorkerEndpoint,
			SharedSecret: cfg.Router.SharedSecret,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
	}

	router, err := service.NewExecutionRouter(service.ExecutionRouterOptions{
		Worker: invoker,
		Config: service.RouterConfig{
			Enabled:         cfg.Router.KodosumiEnabled,
			Timeout:         cfg.Router.Timeout,
			FallbackOnError: cfg.Router.FallbackOnError,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	gateway, err := masumi.NewGateway(masumi.GatewayOptions{
		BaseURL:         cfg.Payment.ServiceURL,
		APIKey:          cfg.Payment.APIKey,
		AgentIdentifier: cfg.Payment.AgentIdentifier,
		SellerVKey:      cfg.Payment.SellerVKey,
		Network:         cfg.Payment.Network,
		PollInterval:    cfg.Payment.PollInterval,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	store := data.NewMemoryJobStore()

	managerOpts := service.JobManagerOptions{
		Store:             store,
		Gateway:           gateway,
		Router:            router,
		Analyzer:          reviewer,
		Scanner:           scanner,
		Logger:            logger,
		ExecutionDeadline: cfg.Router.ExecutionDeadline,
		ReportCacheTTL:    cfg.Analyzer.ReportCacheTTL,
		AllowedRepoHosts:  cfg.Scan.AllowedRepoHosts,
	}
	if deps.DB != nil {
		managerOpts.Archive = data.NewJobArchiveRepo(deps.DB)
	}
	if deps.RedisClient != nil {
		cacheRepo := data.NewRedisCacheRepo(deps.RedisClient)
		managerOpts.Cache = cacheRepo
		managerOpts.Confirmations = cacheRepo
	}

	manager, err := service.NewJobManager(managerOpts)
	if err != nil {
		return nil, err
	}

	return &ServiceContainer{
		Manager:  manager,
		Router:   router,
		Reviewer: reviewer,
		Scanner:  scanner,
		Store:    store,
		Gateway:  gateway,
	}, nil
}

// buildReviewer constructs the review pipeline, with the LLM lanes enabled
// only when an API key is configured.
func buildReviewer(cfg *config.AppConfig, logger *slog.Logger) (*service.ReviewService, error) {
	var llm core.LLMClient
	if cfg.Analyzer.AnthropicAPIKey != "" {
		client, err := anthropic.NewClient(anthropic.ClientOptions{
			APIKey: cfg.Analyzer.AnthropicAPIKey,
			Model:  cfg.Analyzer.Model,
		})
		if err != nil {
			return nil, err
		}
		llm = client
	} else {
		logger.Warn("no anthropic API key configured, reviews degrade to heuristics")
	}

	return service.NewReviewService(service.ReviewServiceOptions{
		LLM:           llm,
		Logger:        logger,
		MaxTokens:     cfg.Analyzer.MaxTokens,
		BatchSize:     cfg.Analyzer.BatchSize,
		MaxConcurrent: cfg.Analyzer.MaxConcurrent,
	})
}
