package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gamerfie/game-vault/database"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("record already exists")
	// ErrCapacityReached is returned when a challenge has no free participant slot
	ErrCapacityReached = errors.New("participant limit reached")
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func execContext(ctx context.Context, q querier, stmt string, args ...interface{}) (sql.Result, error) {
	return q.ExecContext(ctx, database.Rebind(stmt), args...)
}

func queryContext(ctx context.Context, q querier, stmt string, args ...interface{}) (*sql.Rows, error) {
	return q.QueryContext(ctx, database.Rebind(stmt), args...)
}

func queryRowContext(ctx context.Context, q querier, stmt string, args ...interface{}) *sql.Row {
	return q.QueryRowContext(ctx, database.Rebind(stmt), args...)
}

// lockClause returns the row lock suffix for engines that support it.
// SQLite transactions already hold the write lock.
func lockClause() string {
	if database.GetDBType() == database.DBTypeSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// Drivers hand back times in different locations, all values are stored as UTC
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
