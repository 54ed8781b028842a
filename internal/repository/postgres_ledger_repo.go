package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/tradeledger/internal/database"
	"github.com/hitoshi/tradeledger/internal/model"
)

// PostgresLedgerRepo はトランザクションの記録と残高更新を原子的に行うリポジトリ。
//
// 1つのDBトランザクション内で以下を順に実行する:
//  1. アカウントが存在しなければ残高0で作成（ON CONFLICT DO NOTHING）
//  2. アカウント行をFOR UPDATEでロックし所有者を確認
//  3. トランザクションを挿入（IDの重複はErrConflict）
//  4. 残高をamountだけ加算
//
// 行ロックと加算式の更新により、同一アカウントへの並行適用でも残高は合計値に収束する。
type PostgresLedgerRepo struct {
	db           *sqlx.DB
	transactions *Table[model.Transaction]
}

// NewPostgresLedgerRepo はPostgresLedgerRepoを生成する。
func NewPostgresLedgerRepo(db *sqlx.DB) *PostgresLedgerRepo {
	return &PostgresLedgerRepo{
		db:           db,
		transactions: NewTable[model.Transaction](db, "transactions", transactionColumns...),
	}
}

// Apply はトランザクションを記録し、残高を更新する。
func (r *PostgresLedgerRepo) Apply(ctx context.Context, t *model.Transaction) (*model.LedgerEntry, error) {
	var entry *model.LedgerEntry

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, user_id, balance) VALUES ($1, $2, 0)
			 ON CONFLICT (id) DO NOTHING`,
			t.AccountID, t.UserID,
		)
		if err != nil {
			return translateError("ensure account", err)
		}
		inserted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		var owner string
		if err := tx.GetContext(ctx, &owner,
			`SELECT user_id FROM accounts WHERE id = $1 FOR UPDATE`,
			t.AccountID,
		); err != nil {
			return translateError("lock account", err)
		}
		if owner != t.UserID {
			return fmt.Errorf("account %s: %w", t.AccountID, ErrOwnerMismatch)
		}

		recorded, err := r.transactions.WithTx(tx).Insert(ctx, Fields{
			"id":         t.ID,
			"account_id": t.AccountID,
			"user_id":    t.UserID,
			"amount":     t.Amount,
			"signature":  t.Signature,
		})
		if err != nil {
			return err
		}

		var balance int64
		if err := tx.GetContext(ctx, &balance,
			`UPDATE accounts SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
			t.AccountID, t.Amount,
		); err != nil {
			return translateError("update balance", err)
		}

		entry = &model.LedgerEntry{
			Transaction:    recorded,
			AccountCreated: inserted == 1,
			Balance:        balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// compile-time interface check
var _ LedgerRepository = (*PostgresLedgerRepo)(nil)
