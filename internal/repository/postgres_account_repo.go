package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/tradeledger/internal/model"
)

var accountColumns = []string{"id", "balance", "user_id"}

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	accounts     *Table[model.Account]
	transactions TransactionRepository
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db sqlx.ExtContext) *PostgresAccountRepo {
	return &PostgresAccountRepo{
		accounts:     NewTable[model.Account](db, "accounts", accountColumns...),
		transactions: NewPostgresTransactionRepo(db),
	}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.accounts.FindOne(ctx, Eq("id", id))
}

// Create はアカウントを作成する。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) (*model.Account, error) {
	return r.accounts.Insert(ctx, Fields{
		"id":      account.ID,
		"balance": account.Balance,
		"user_id": account.UserID,
	})
}

// ListByUserID はユーザーのアカウント一覧を返す。
// トランザクションはアカウントID群で一括取得してから振り分ける。
func (r *PostgresAccountRepo) ListByUserID(ctx context.Context, userID string) ([]*model.AccountWithTransactions, error) {
	accounts, err := r.accounts.Select(ctx, Query{
		Filters: []Filter{Eq("user_id", userID)},
		Order:   &Order{Column: "id", Asc: true},
		Page:    Page{Limit: NoLimit},
	})
	if err != nil {
		return nil, err
	}

	result := make([]*model.AccountWithTransactions, 0, len(accounts))
	if len(accounts) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(accounts))
	byID := make(map[string]*model.AccountWithTransactions, len(accounts))
	for _, a := range accounts {
		awt := &model.AccountWithTransactions{Account: *a, Transactions: []*model.Transaction{}}
		result = append(result, awt)
		byID[a.ID] = awt
		ids = append(ids, a.ID)
	}

	txs, err := r.transactions.ListByAccountIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if awt, ok := byID[tx.AccountID]; ok {
			awt.Transactions = append(awt.Transactions, tx)
		}
	}

	return result, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
