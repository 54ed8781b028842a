// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/tradeledger/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrConflictを返す。
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// List はフィルタ条件に一致するユーザーをページ分割して返す。
	// Countはページ指定を無視した総件数。
	List(ctx context.Context, q model.UserQuery) (*model.UserList, error)

	// Update は指定IDのユーザーを部分更新する。
	// 存在しない場合はErrNotFound、メールアドレスが重複する場合はErrConflictを返す。
	Update(ctx context.Context, id string, changes model.UserChanges) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。存在しない場合はErrNotFoundを返す。
	// 関連するaccounts、transactionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// Create はアカウントを作成する。
	// IDの重複または存在しないユーザーを指定した場合はErrConflictを返す。
	Create(ctx context.Context, account *model.Account) (*model.Account, error)

	// ListByUserID はユーザーのアカウント一覧をトランザクション付きで返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.AccountWithTransactions, error)
}

// TransactionRepository はトランザクション履歴の参照インターフェース。
// 書き込みはLedgerRepositoryを経由する。
type TransactionRepository interface {
	// ListByUserID はユーザーのトランザクションを作成日時の昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Transaction, error)

	// ListByAccountIDs は指定アカウント群のトランザクションを返す。
	ListByAccountIDs(ctx context.Context, accountIDs []string) ([]*model.Transaction, error)
}

// LedgerRepository はトランザクションの記録と残高更新を1つのDBトランザクションで行う。
type LedgerRepository interface {
	// Apply はトランザクションを記録し、アカウント残高にamountを加算する。
	// アカウントが存在しない場合は残高0で作成してから適用する。
	// 所有者が異なる場合はErrOwnerMismatch、IDが重複する場合はErrConflictを返し、
	// いずれの場合も何も永続化されない。
	Apply(ctx context.Context, tx *model.Transaction) (*model.LedgerEntry, error)
}
