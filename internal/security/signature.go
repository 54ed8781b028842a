// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"crypto/subtle"
	"strconv"
)

// Signature はトランザクションの署名を計算する。
// account_id, amount, id, user_id, secret をこの順に区切り文字なしで連結したダイジェスト。
// 区切り文字がないため、境界をずらした別の入力が同じ署名になり得る。
// 既存クライアントとの互換性のためこの形式を維持している。
func Signature(accountID string, amount int64, id, userID, secret string) string {
	return Digest(accountID + strconv.FormatInt(amount, 10) + id + userID + secret)
}

// VerifySignature は署名が期待値と一致するかを定数時間で比較する。
func VerifySignature(signature, accountID string, amount int64, id, userID, secret string) bool {
	expected := Signature(accountID, amount, id, userID, secret)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}
