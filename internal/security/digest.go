// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest は入力文字列のSHA-256ダイジェストを小文字16進文字列で返す。
// 同一入力に対して常に同一出力を返す。
func Digest(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
