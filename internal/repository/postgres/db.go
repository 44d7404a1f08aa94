package postgres

import (
	"context"
	"database/sql"
)

// DB is the subset of database operations the repositories need. It is
// satisfied by *database.PostgresDB, keeping the circuit breaker on the query
// path, and by *sql.DB in tests.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
