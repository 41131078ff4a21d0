package database

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// PostgresConfig holds Postgres connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
}

// initPostgres initializes a Postgres connection through the pgx stdlib adapter
func initPostgres(cfg PostgresConfig) error {
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse Postgres DSN: %w", err)
	}

	// Supabase's pooler (pgbouncer, transaction mode) does not support prepared statements
	connCfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	DB = stdlib.OpenDB(*connCfg)

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	DB.SetMaxOpenConns(maxOpen)
	DB.SetMaxIdleConns(maxOpen / 4)
	DB.SetConnMaxLifetime(30 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping Postgres database: %w", err)
	}

	dbType = DBTypePostgres

	logDBInfo("Postgres initialized: %s@%s:%d/%s", connCfg.User, connCfg.Host, connCfg.Port, connCfg.Database)
	return nil
}
