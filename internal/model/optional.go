// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
)

// Optional は部分更新用の3状態フィールドを表す。
//   - 未指定: Set == false
//   - 明示的なnull: Set == true && Null == true
//   - 値あり: Set == true && Null == false
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some は値ありのOptionalを生成する。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null は明示的なnullのOptionalを生成する。
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present は値が指定されていればtrueを返す。未指定とnullはfalse。
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// Get は値と、値が指定されているかを返す。
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Present()
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
// キーが存在しない場合は呼ばれないため、Setはfalseのまま残る。
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON はjson.Marshalerを実装する。未指定とnullはnullとして出力する。
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
