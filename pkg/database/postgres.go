package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/tradegate/pkg/config"
)

// ErrNotConfigured is returned when DATABASE_URL is empty.
var ErrNotConfigured = errors.New("database not configured")

// DB wraps the pgxpool.Pool
// ⭐ SSOT: the only place a pgx pool is created
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	if !cfg.Database.Enabled() {
		return nil, ErrNotConfigured
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// HealthCheck returns health information used by the /health endpoint
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	stats := db.Pool.Stat()
	status.AcquiredConns = stats.AcquiredConns()
	status.IdleConns = stats.IdleConns()
	status.TotalConns = stats.TotalConns()
	status.Healthy = true
	return status, nil
}

// HealthStatus represents the health status of the database
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	ResponseTime  time.Duration `json:"response_time"`
	Error         string        `json:"error,omitempty"`
	AcquiredConns int32         `json:"acquired_conns"`
	IdleConns     int32         `json:"idle_conns"`
	TotalConns    int32         `json:"total_conns"`
}
