// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizer はユーザーが入力する表示名からマークアップを除去する。
// 表示名はAPI応答でそのまま返されるため、保存前にサニタイズする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizerService は表示名サニタイズ機能のインターフェースを定義する。
type NameSanitizerService interface {
	// Sanitize は全てのHTMLタグを除去し、前後の空白を取り除いた文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// nameSanitizer はNameSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerServiceの新しいインスタンスを生成する。
// タグを一切許可しないStrictPolicyを使用する。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// entityRestorer はStrictPolicyがエスケープした文字のうち、マークアップにならないものを戻す。
// &lt; と &gt; はタグの再構成を防ぐためエスケープのまま残す。
var entityRestorer = strings.NewReplacer(
	"&amp;", "&",
	"&#39;", "'",
	"&#34;", `"`,
	"&quot;", `"`,
)

// Sanitize は表示名をサニタイズする。
// エンティティで埋め込まれたタグも除去するため、先にエンティティを展開してから適用する。
func (s *nameSanitizer) Sanitize(raw string) string {
	cleaned := s.policy.Sanitize(html.UnescapeString(raw))
	return strings.TrimSpace(entityRestorer.Replace(cleaned))
}
