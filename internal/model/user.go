// Package model はドメインモデルを定義する。
package model

import "time"

// User はプラットフォームの利用ユーザーを表す。
type User struct {
	ID             string    `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	FullName       string    `db:"full_name"`
	IsAdmin        bool      `db:"is_admin"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// UserCreate はユーザー作成時の入力。
// IsAdminは管理者による作成時のみ設定される。
type UserCreate struct {
	Email    string
	Password string
	FullName string
	IsAdmin  bool
}

// UserPatch はユーザーの部分更新入力。
// 各フィールドは未指定・null・値の3状態を持ち、未指定とnullは更新対象外となる。
type UserPatch struct {
	Email    Optional[string] `json:"email"`
	Password Optional[string] `json:"password"`
	FullName Optional[string] `json:"full_name"`
	IsAdmin  Optional[bool]   `json:"is_admin"`
}

// UserQuery は管理者向けユーザー一覧のフィルタ条件。
type UserQuery struct {
	Email    string // 部分一致（大文字小文字を区別しない）
	FullName string // 部分一致（大文字小文字を区別しない）
	IsAdmin  *bool
	Asc      bool // created_at昇順。falseの場合は新しい順
	Offset   int
	Limit    int
}

// UserList はユーザー一覧とページネーションを無視した総件数。
type UserList struct {
	Count int
	Users []*User
}

// UserChanges はリポジトリに渡すユーザー更新内容。nilのフィールドは変更しない。
type UserChanges struct {
	Email          *string
	HashedPassword *string
	FullName       *string
	IsAdmin        *bool
}
