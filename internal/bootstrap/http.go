package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sokosumi/aikido-reviewer/config"
	httpx "github.com/sokosumi/aikido-reviewer/internal/http"
)

// HTTPServerConfig contains configuration for the buyer-facing API server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the buyer-facing API server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil || cfg.Services == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Manager:          cfg.Services.Manager,
		CanaryMarkerName: appCfg.Router.MarkerName,
		Logger:           logger,
	})

	return startServer(logger, "API server", handler, appCfg.HTTP.Addr, 30*time.Second)
}

// WorkerServerConfig contains configuration for the internal worker server.
type WorkerServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// StartWorkerServer creates and starts the internal execution worker server.
func StartWorkerServer(cfg *WorkerServerConfig) *http.Server {
	if cfg == nil || cfg.Services == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := httpx.NewWorkerRouter(httpx.WorkerRouterServices{
		Analyzer:     cfg.Services.Reviewer,
		Scanner:      cfg.Services.Scanner,
		SharedSecret: appCfg.Router.SharedSecret,
		Logger:       logger,
	})

	// Executions run synchronously on this server, so responses can take as
	// long as a full scan plus review.
	writeTimeout := appCfg.Router.ExecutionDeadline + time.Minute

	return startServer(logger, "worker server", handler, appCfg.HTTP.WorkerAddr, writeTimeout)
}

func startServer(logger *slog.Logger, name string, handler http.Handler, addr string, writeTimeout time.Duration) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting "+name, "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(name+" failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Name    string
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down an HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down " + cfg.Name)
	}

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info(cfg.Name + " stopped")
	}

	return nil
}
