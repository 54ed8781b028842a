package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/tradeledger/internal/model"
)

var userColumns = []string{"id", "email", "hashed_password", "full_name", "is_admin", "created_at", "updated_at"}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	users *Table[model.User]
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db sqlx.ExtContext) *PostgresUserRepo {
	return &PostgresUserRepo{users: NewTable[model.User](db, "users", userColumns...)}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.users.FindOne(ctx, Eq("id", id))
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.users.FindOne(ctx, Eq("email", email))
}

// Create はユーザーを作成する。created_at、updated_atはDBのデフォルト値を使用する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	return r.users.Insert(ctx, Fields{
		"id":              user.ID,
		"email":           user.Email,
		"hashed_password": user.HashedPassword,
		"full_name":       user.FullName,
		"is_admin":        user.IsAdmin,
	})
}

// List はフィルタ条件に一致するユーザーを作成日時順に返す。
func (r *PostgresUserRepo) List(ctx context.Context, q model.UserQuery) (*model.UserList, error) {
	var filters []Filter
	if q.Email != "" {
		filters = append(filters, ILike("email", q.Email))
	}
	if q.FullName != "" {
		filters = append(filters, ILike("full_name", q.FullName))
	}
	if q.IsAdmin != nil {
		filters = append(filters, Eq("is_admin", *q.IsAdmin))
	}

	query := Query{
		Filters: filters,
		Order:   &Order{Column: "created_at", Asc: q.Asc},
		Page:    Page{Offset: q.Offset, Limit: q.Limit},
	}

	count, err := r.users.CountQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	users, err := r.users.Select(ctx, query)
	if err != nil {
		return nil, err
	}

	return &model.UserList{Count: count, Users: users}, nil
}

// Update は指定IDのユーザーを部分更新する。updated_atは常に更新する。
func (r *PostgresUserRepo) Update(ctx context.Context, id string, changes model.UserChanges) (*model.User, error) {
	set := Fields{"updated_at": time.Now().UTC()}
	if changes.Email != nil {
		set["email"] = *changes.Email
	}
	if changes.HashedPassword != nil {
		set["hashed_password"] = *changes.HashedPassword
	}
	if changes.FullName != nil {
		set["full_name"] = *changes.FullName
	}
	if changes.IsAdmin != nil {
		set["is_admin"] = *changes.IsAdmin
	}

	user, err := r.users.Update(ctx, set, Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return user, nil
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	n, err := r.users.Delete(ctx, Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete user %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
