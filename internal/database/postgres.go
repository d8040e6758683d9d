package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/config"
)

// PostgresDB wraps a PostgreSQL connection pool.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// Ensure PostgresDB implements the pool interface repositories depend on.
var _ DBPool = (*PostgresDB)(nil)

// NewPostgresConnection creates a new PostgreSQL connection pool with retry.
//
// Parameters:
//
//	ctx: Context for connection establishment.
//	cfg: Database configuration.
//	logger: Logger for connection events.
//
// Returns:
//
//	*PostgresDB: The initialized connection.
//	error: Error if connection fails.
func NewPostgresConnection(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*PostgresDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	for attempts := 0; attempts < 3; attempts++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			break
		}
		logger.Warn("Database connection attempt failed",
			zap.Int("attempt", attempts+1),
			zap.Error(err),
		)
		if attempts < 2 {
			time.Sleep(time.Duration(1<<uint(attempts)) * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool after retries: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL")

	return &PostgresDB{Pool: pool, logger: logger}, nil
}

// Close closes the database connection pool.
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info("PostgreSQL connection closed")
	}
}

// HealthCheck verifies the database connection.
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("postgres pool is not initialized")
	}
	return db.Pool.Ping(ctx)
}

// Query executes a query that returns rows.
func (db *PostgresDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("postgres pool is not initialized")
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return PgxRows{Rows: rows}, nil
}

// QueryRow executes a query that returns a single row.
func (db *PostgresDB) QueryRow(ctx context.Context, query string, args ...any) Row {
	if db.Pool == nil {
		return errRow{err: fmt.Errorf("postgres pool is not initialized")}
	}
	return PgxRow{Row: db.Pool.QueryRow(ctx, query, args...)}
}

// Exec executes a query without returning rows.
func (db *PostgresDB) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("postgres pool is not initialized")
	}

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return PgxResult{CommandTag: tag}, nil
}

// Begin starts a transaction.
func (db *PostgresDB) Begin(ctx context.Context) (Tx, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("postgres pool is not initialized")
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return PgxTx{Tx: tx}, nil
}

func buildPoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	var dsn string

	// Host may carry a full connection string (flexible deployment config).
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		dsn = cfg.Host
	} else if cfg.DatabaseURL != "" {
		dsn = cfg.DatabaseURL
	} else {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s connect_timeout=%d",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
			cfg.ApplicationName, cfg.ConnectTimeout)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if poolConfig.MinConns > poolConfig.MaxConns && poolConfig.MaxConns > 0 {
		return nil, fmt.Errorf("invalid pool sizing: min_conns (%d) > max_conns (%d)", poolConfig.MinConns, poolConfig.MaxConns)
	}

	if cfg.ConnMaxLifetime != "" {
		duration, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse conn_max_lifetime: %w", err)
		}
		poolConfig.MaxConnLifetime = duration
	}
	if cfg.ConnMaxIdleTime != "" {
		duration, err := time.ParseDuration(cfg.ConnMaxIdleTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse conn_max_idle_time: %w", err)
		}
		poolConfig.MaxConnIdleTime = duration
	}

	poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName

	// Transaction-mode poolers (pgbouncer) reject prepared statements; the
	// simple protocol keeps every query a plain parameterized exec.
	if cfg.PoolerCompat {
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	poolConfig.ConnConfig.Tracer = &PostgresSentryTracer{}

	return poolConfig, nil
}
