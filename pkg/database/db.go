package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Config holds database connection settings. Zero values for the pool
// fields fall back to the development defaults.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns database settings for local development
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5432,
		User:            "workorbit",
		Password:        "dev",
		Database:        "workorbit",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func (c *Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = d.MaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = d.ConnMaxLifetime
	}
}

// Queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories run against it so the same code serves both pool-backed and
// transaction-scoped calls.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConnectionPool manages database connections
type ConnectionPool struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConnectionPool opens a pool against Postgres and verifies it with a
// bounded ping before returning.
func NewConnectionPool(ctx context.Context, config *Config, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	config.applyDefaults()

	db, err := sql.Open("postgres", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected",
		slog.String("host", config.Host),
		slog.String("database", config.Database),
	)

	return &ConnectionPool{db: db, logger: logger}, nil
}

// GetDB returns the underlying sql.DB
func (cp *ConnectionPool) GetDB() *sql.DB {
	return cp.db
}

// Close closes the pool
func (cp *ConnectionPool) Close() error {
	if cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

// Health pings the database with a short deadline
func (cp *ConnectionPool) Health(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return cp.db.PingContext(pingCtx)
}
