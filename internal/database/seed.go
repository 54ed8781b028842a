package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/tradeledger/internal/security"
)

// SeedUser は開発用に投入するユーザー。
type SeedUser struct {
	Email          string
	Password       string
	FullName       string
	IsAdmin        bool
	AccountBalance *int64 // nilの場合はアカウントを作成しない
}

// DefaultSeedUsers は開発環境の初期データ。
func DefaultSeedUsers() []SeedUser {
	balance := int64(1000)
	return []SeedUser{
		{Email: "user@example.com", Password: "user123", FullName: "Test User", AccountBalance: &balance},
		{Email: "admin@example.com", Password: "admin123", FullName: "Test Admin", IsAdmin: true},
	}
}

// Seed は初期データを1つのトランザクションで投入する。
// 既に存在するメールアドレスはスキップするため、繰り返し実行できる。
// 戻り値は新規に作成したユーザー数。
func Seed(ctx context.Context, db *sqlx.DB, users []SeedUser) (int, error) {
	created := 0
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, u := range users {
			hash, err := security.HashPassword(u.Password)
			if err != nil {
				return err
			}

			var userID string
			err = tx.GetContext(ctx, &userID,
				`INSERT INTO users (id, email, hashed_password, full_name, is_admin)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (email) DO NOTHING
				 RETURNING id`,
				uuid.NewString(), u.Email, hash, u.FullName, u.IsAdmin,
			)
			if errors.Is(err, sql.ErrNoRows) {
				slog.Info("seed user already exists, skipping", slog.String("email", u.Email))
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
			}
			created++

			if u.AccountBalance == nil {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO accounts (id, user_id, balance) VALUES ($1, $2, $3)`,
				uuid.NewString(), userID, *u.AccountBalance,
			); err != nil {
				return fmt.Errorf("failed to seed account for %s: %w", u.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
