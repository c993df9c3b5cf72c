package services

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/ZhanWeiKai/eatwhat/internal/plugins/postgres"
)

// TxRunner runs a function inside one transaction boundary.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TxManager struct {
	log *slog.Logger
	db  *sql.DB
}

func NewTxManager(log *slog.Logger, db *sql.DB) *TxManager {
	return &TxManager{log: log, db: db}
}

func (tm *TxManager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(postgres.WithTxContext(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
