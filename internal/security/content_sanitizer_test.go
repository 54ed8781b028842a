package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsMarkup は表示名から全てのタグが除去されることを検証する。
func TestSanitize_StripsMarkup(t *testing.T) {
	sanitizer := NewNameSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "山田 太郎",
			want:  "山田 太郎",
		},
		{
			name:  "強調タグが除去される",
			input: "<b>Alice</b>",
			want:  "Alice",
		},
		{
			name:  "scriptタグは中身ごと除去される",
			input: "Bob<script>alert(1)</script>",
			want:  "Bob",
		},
		{
			name:  "イベント属性付きのタグが除去される",
			input: `<img src=x onerror="alert(1)">Carol`,
			want:  "Carol",
		},
		{
			name:  "前後の空白が除去される",
			input: "  Dave  ",
			want:  "Dave",
		},
		{
			name:  "アポストロフィとアンパサンドは保持される",
			input: "O'Brien & Sons",
			want:  "O'Brien & Sons",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_EntityEncodedTags はエンティティで埋め込まれたタグがタグとして復元されないことを検証する。
func TestSanitize_EntityEncodedTags(t *testing.T) {
	sanitizer := NewNameSanitizer()

	got := sanitizer.Sanitize("&lt;script&gt;alert(1)&lt;/script&gt;Eve")
	if strings.Contains(got, "<script") {
		t.Errorf("Sanitize returned markup: %q", got)
	}
	if !strings.Contains(got, "Eve") {
		t.Errorf("Sanitize(%q) lost text content", got)
	}
}

// TestSanitize_Idempotent は同一入力に対して結果が安定することを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewNameSanitizer()

	inputs := []string{
		"<i>Frank</i>",
		"Grace & Co",
		"<a href=\"javascript:alert(1)\">Heidi</a>",
	}

	for _, input := range inputs {
		first := sanitizer.Sanitize(input)
		second := sanitizer.Sanitize(first)
		if first != second {
			t.Errorf("Sanitize not idempotent for %q: first=%q second=%q", input, first, second)
		}
	}
}
