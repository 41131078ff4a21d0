package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBType represents the type of database being used
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypeMySQL    DBType = "mysql"
	DBTypePostgres DBType = "postgres"
)

// DB holds the database connection
var DB *sql.DB

// dbType holds the current database type
var dbType DBType = DBTypeSQLite

// Config holds the configuration for all supported databases
type Config struct {
	Type       DBType
	SQLitePath string
	MySQL      MySQLConfig
	Postgres   PostgresConfig
}

// Init initializes the configured database connection and runs migrations
func Init(cfg Config) error {
	var err error
	switch cfg.Type {
	case DBTypeMySQL:
		err = initMySQL(cfg.MySQL)
	case DBTypePostgres:
		err = initPostgres(cfg.Postgres)
	case DBTypeSQLite, "":
		err = initSQLite(cfg.SQLitePath)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return err
	}

	if err := runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// GetDBType returns the type of the active database
func GetDBType() DBType {
	return dbType
}

// Ping checks that the database is reachable
func Ping(ctx context.Context) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	return DB.PingContext(ctx)
}

// Rebind converts '?' placeholders into the placeholder style of the active database.
// Queries in this code base never contain a literal '?' inside string constants.
func Rebind(query string) string {
	if dbType != DBTypePostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// WithTransaction executes a function within a transaction with retry support
// If the function returns an error, the transaction is rolled back
// If the function succeeds, the transaction is committed
func WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return WithRetryContext(ctx, func() error {
		tx, err := DB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			// Attempt rollback, ignore rollback errors
			_ = tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		return nil
	})
}

// IsUniqueViolation reports whether err was caused by a unique constraint
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	// modernc.org/sqlite reports constraint failures in the message
	return containsIgnoreCase(err.Error(), "UNIQUE constraint failed")
}

// logDBInfo logs the active database without credentials
func logDBInfo(format string, v ...interface{}) {
	log.Printf("Database: "+format, v...)
}
