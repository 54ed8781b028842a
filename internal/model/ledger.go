// Package model はドメインモデルを定義する。
package model

import "time"

// Account はユーザーに紐づく残高台帳を表す。
// 残高は負になり得る。
type Account struct {
	ID      string `db:"id"`
	Balance int64  `db:"balance"`
	UserID  string `db:"user_id"`
}

// AccountWithTransactions はアカウントと関連トランザクションを結合したモデル。
type AccountWithTransactions struct {
	Account
	Transactions []*Transaction
}

// AccountCreate はアカウント作成時の入力。IDが空の場合は生成する。
type AccountCreate struct {
	ID      string
	Balance int64
	UserID  string
}

// Transaction は署名付きの残高変更イベントを表す。
// IDは呼び出し側が指定する冪等キーで、作成後に更新・削除されることはない。
type Transaction struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	UserID    string    `db:"user_id"`
	Amount    int64     `db:"amount"`
	Signature string    `db:"signature"`
	CreatedAt time.Time `db:"created_at"`
}

// LedgerEntry はトランザクション適用の結果を表す。
type LedgerEntry struct {
	Transaction    *Transaction
	AccountCreated bool
	Balance        int64 // 適用後の残高
}

// TransactionCreate はトランザクション作成時の入力。
// Signatureはaccount_id、amount、id、user_idと共有シークレットから計算された値。
type TransactionCreate struct {
	ID        string
	AccountID string
	UserID    string
	Amount    int64
	Signature string
}
