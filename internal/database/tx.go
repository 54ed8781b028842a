package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WithTx はfnを1つのトランザクション内で実行する。
// fnがエラーを返した場合はロールバックし、そのエラーをそのまま返す。
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
