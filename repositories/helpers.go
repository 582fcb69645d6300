package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLExecutor lets repository writes run under either *sql.DB or *sql.Tx,
// so a service can sequence delete-then-insert inside one transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
