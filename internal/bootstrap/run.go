package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sokosumi/aikido-reviewer/config"
)

// shutdownWaitTimeout is the maximum time to wait for servers to stop
// gracefully.
const shutdownWaitTimeout = 15 * time.Second

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    *ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. Blocks until a shutdown signal is received.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	var apiServer, workerServer *http.Server

	if enabled[config.ServiceModeHTTP] {
		apiServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}
	if enabled[config.ServiceModeWorker] {
		workerServer = StartWorkerServer(&WorkerServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}
	if apiServer == nil && workerServer == nil {
		return errors.New("no services enabled")
	}

	return waitForShutdown(shutdownDeps{
		apiServer:    apiServer,
		workerServer: workerServer,
		logger:       logger,
	})
}

// shutdownDeps contains dependencies for graceful shutdown.
type shutdownDeps struct {
	apiServer    *http.Server
	workerServer *http.Server
	logger       *slog.Logger
}

// waitForShutdown blocks until SIGINT or SIGTERM, then stops both servers.
func waitForShutdown(deps shutdownDeps) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	deps.logger.Info("shutting down services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
	defer cancel()

	var errs []error
	if err := ShutdownHTTPServer(ShutdownConfig{
		Context: shutdownCtx,
		Server:  deps.apiServer,
		Name:    "API server",
		Logger:  deps.logger,
	}); err != nil {
		errs = append(errs, fmt.Errorf("shutdown API server: %w", err))
	}
	if err := ShutdownHTTPServer(ShutdownConfig{
		Context: shutdownCtx,
		Server:  deps.workerServer,
		Name:    "worker server",
		Logger:  deps.logger,
	}); err != nil {
		errs = append(errs, fmt.Errorf("shutdown worker server: %w", err))
	}

	return errors.Join(errs...)
}
