package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/tradeledger/internal/model"
)

var transactionColumns = []string{"id", "account_id", "user_id", "amount", "signature", "created_at"}

// PostgresTransactionRepo はPostgreSQLを使用したトランザクション参照リポジトリ。
type PostgresTransactionRepo struct {
	transactions *Table[model.Transaction]
}

// NewPostgresTransactionRepo はPostgresTransactionRepoを生成する。
func NewPostgresTransactionRepo(db sqlx.ExtContext) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{
		transactions: NewTable[model.Transaction](db, "transactions", transactionColumns...),
	}
}

// ListByUserID はユーザーのトランザクションを作成日時の昇順で返す。
func (r *PostgresTransactionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Transaction, error) {
	return r.transactions.Select(ctx, Query{
		Filters: []Filter{Eq("user_id", userID)},
		Order:   &Order{Column: "created_at", Asc: true},
		Page:    Page{Limit: NoLimit},
	})
}

// ListByAccountIDs は指定アカウント群のトランザクションを作成日時の昇順で返す。
func (r *PostgresTransactionRepo) ListByAccountIDs(ctx context.Context, accountIDs []string) ([]*model.Transaction, error) {
	if len(accountIDs) == 0 {
		return []*model.Transaction{}, nil
	}
	return r.transactions.Select(ctx, Query{
		Filters: []Filter{Any("account_id", accountIDs)},
		Order:   &Order{Column: "created_at", Asc: true},
		Page:    Page{Limit: NoLimit},
	})
}

// compile-time interface check
var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
