// Package model はドメインモデルを定義する。
package model

import "time"

// TokenType はトークンペアの種別を表す。
const TokenType = "Bearer"

// TokenPair はaccess_tokenとrefresh_tokenの組を表す。永続化されない。
// トークン文字列は "Bearer <jwt>" 形式で保持する。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access_tokenの有効期限
}
