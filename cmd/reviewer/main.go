package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/sokosumi/aikido-reviewer/config"
	"github.com/sokosumi/aikido-reviewer/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	cfgPtr := &cfg

	logStartupInfo(ctx, logger, cfgPtr)

	if err = bootstrap.ValidateServiceConfig(cfgPtr); err != nil {
		return err
	}

	db, redisClient, err := initInfrastructure(ctx, cfgPtr, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close database failed", "error", cerr)
			}
		}()
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfgPtr,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:      cfgPtr,
		Services:    services,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		logger.WarnContext(ctx, "invalid SERVICES value", "services", cfg.Services, "error", err)
		return
	}
	modes := make([]string, 0, len(enabled))
	for mode := range enabled {
		modes = append(modes, string(mode))
	}
	logger.InfoContext(ctx, "starting aikido reviewer",
		"network", cfg.Payment.Network,
		"canary_enabled", cfg.Router.KodosumiEnabled,
		"enabled_services", modes)
}

// initInfrastructure connects optional shared dependencies. Both the archive
// database and redis are disabled by default.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	if db != nil && cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			if cerr := db.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
			}
			return nil, nil, err
		}
	}

	redisClient, err := bootstrap.ConnectRedis(cfg.Redis, logger)
	if err != nil {
		if db != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, nil, fmt.Errorf("connect redis: %w", errors.Join(err, fmt.Errorf("close database: %w", cerr)))
			}
		}
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	return db, redisClient, nil
}
