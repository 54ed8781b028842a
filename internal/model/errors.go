// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, user, account, transaction, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeInvalidToken            = "INVALID_TOKEN"
	ErrCodeTokenExpired            = "TOKEN_EXPIRED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeUserConflict            = "USER_CONFLICT"
	ErrCodeAccountNotFound         = "ACCOUNT_NOT_FOUND"
	ErrCodeAccountConflict         = "ACCOUNT_CONFLICT"
	ErrCodeTransactionNotFound     = "TRANSACTION_NOT_FOUND"
	ErrCodeTransactionConflict     = "TRANSACTION_CONFLICT"
	ErrCodeInvalidSignature        = "INVALID_SIGNATURE"
	ErrCodeTransactionUserMismatch = "TRANSACTION_USER_MISMATCH"
)

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewInvalidTokenError は無効なトークンのエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "無効なトークンです。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTokenExpiredError はトークンの有効期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "refresh_tokenでトークンを再発行するか、ログインし直してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "user",
		Action:   "ユーザーIDまたは認証情報を確認してください。",
	}
}

// NewUserConflictError はユーザー作成・更新時の一意制約違反エラーを生成する。
func NewUserConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeUserConflict,
		Message:  "同じメールアドレスのユーザーが既に存在します。",
		Category: "user",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewAccountNotFoundError はアカウントが見つからない場合のエラーを生成する。
func NewAccountNotFoundError(accountID string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  fmt.Sprintf("指定されたアカウントが見つかりません: %s", accountID),
		Category: "account",
		Action:   "アカウントIDを確認してください。",
	}
}

// NewAccountConflictError はアカウント作成時の制約違反エラーを生成する。
func NewAccountConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountConflict,
		Message:  "アカウントを作成できません。IDが重複しているか、所有ユーザーが存在しません。",
		Category: "account",
		Action:   "アカウントIDとユーザーIDを確認してください。",
	}
}

// NewTransactionNotFoundError はトランザクションが見つからない場合のエラーを生成する。
func NewTransactionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTransactionNotFound,
		Message:  "トランザクションが見つかりません。",
		Category: "transaction",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewTransactionConflictError はトランザクションIDの重複エラーを生成する。
// 同一IDでの再送は二重計上せずにこのエラーで失敗する。
func NewTransactionConflictError(transactionID string) *APIError {
	return &APIError{
		Code:     ErrCodeTransactionConflict,
		Message:  fmt.Sprintf("トランザクションは既に登録されています: %s", transactionID),
		Category: "transaction",
		Action:   "新しいトランザクションIDで送信してください。",
	}
}

// NewInvalidSignatureError はトランザクション署名の不一致エラーを生成する。
func NewInvalidSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  "トランザクションの署名が正しくありません。",
		Category: "transaction",
		Action:   "account_id、amount、id、user_idと共有シークレットから署名を再計算してください。",
	}
}

// NewTransactionUserMismatchError はトランザクションのuser_idがアカウント所有者と異なる場合のエラーを生成する。
func NewTransactionUserMismatchError(accountID string) *APIError {
	return &APIError{
		Code:     ErrCodeTransactionUserMismatch,
		Message:  fmt.Sprintf("アカウントの所有者とトランザクションのユーザーが一致しません: %s", accountID),
		Category: "transaction",
		Action:   "アカウント所有者のuser_idを指定してください。",
	}
}

// ErrCodeRateLimitExceeded はレート制限超過のエラーコード。
const ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// ErrCodeInternal は内部エラーのエラーコード。詳細はログにのみ記録する。
const ErrCodeInternal = "INTERNAL_ERROR"

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
