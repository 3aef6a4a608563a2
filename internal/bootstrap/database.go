package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/sokosumi/aikido-reviewer/config"
	"github.com/sokosumi/aikido-reviewer/internal/data"
)

// ConnectDB establishes a connection to the PostgreSQL job archive.
// Returns nil without error when the archive is disabled.
func ConnectDB(cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	// Build DSN using url.URL to safely handle special characters in credentials
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if logger != nil {
		logger.Info("archive database connected",
			"host", cfg.Host, "port", cfg.Port, "database", cfg.Name)
	}

	return db, nil
}

// RunMigrations applies the job archive schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := data.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}

	return nil
}

// ConnectRedis establishes a connection to Redis. Returns nil without error
// when Redis is disabled.
//
//nolint:ireturn // redis.UniversalClient keeps future sentinel/cluster support open.
func ConnectRedis(cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close redis connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if logger != nil {
		logger.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	}

	return client, nil
}
