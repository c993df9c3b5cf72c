package postgres

import (
	"context"
	"database/sql"
)

type txKeyType struct{}

var txKey = txKeyType{}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// WithTxContext makes tx the executor for repository calls under ctx.
func WithTxContext(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

func GetExecutor(ctx context.Context, db *sql.DB) execer {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}
