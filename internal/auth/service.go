// Package auth はメールアドレスとパスワードによる認証と、JWTトークンペアの管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/tradeledger/internal/model"
	"github.com/hitoshi/tradeledger/internal/repository"
	"github.com/hitoshi/tradeledger/internal/security"
)

// UserCreator は新規ユーザーの作成を行う。user.Serviceが実装する。
type UserCreator interface {
	Create(ctx context.Context, in model.UserCreate) (*model.User, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	users    UserCreator
	tokens   *TokenService
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, users UserCreator, tokens *TokenService) *Service {
	return &Service{
		userRepo: userRepo,
		users:    users,
		tokens:   tokens,
	}
}

// Register は一般ユーザーを登録し、トークンペアを発行する。
// メールアドレスが既に登録済みの場合はUserConflictエラーを返す。
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*model.TokenPair, error) {
	user, err := s.users.Create(ctx, model.UserCreate{
		Email:    email,
		Password: password,
		FullName: fullName,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", slog.String("user_id", user.ID))

	return s.tokens.CreatePair(user.ID)
}

// Login はメールアドレスとパスワードを検証してトークンペアを発行する。
// ユーザーが存在しない場合とパスワード不一致の場合は区別せずUserNotFoundエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := security.VerifyPassword(user.HashedPassword, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			slog.Warn("login failed: password mismatch", slog.String("user_id", user.ID))
			return nil, model.NewUserNotFoundError()
		}
		return nil, err
	}

	return s.tokens.CreatePair(user.ID)
}

// Refresh はリフレッシュトークンを検証し、新しいトークンペアを発行する。
// 失効リストは持たないため、期限内の古いリフレッシュトークンは引き続き有効。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	userID, err := s.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return s.tokens.CreatePair(user.ID)
}

// CurrentUser はアクセストークンからユーザーを取得する。
// トークンが無効な場合はInvalidToken、期限切れの場合はTokenExpired、
// ユーザーが削除済みの場合はInvalidTokenを返す。
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*model.User, error) {
	userID, err := s.tokens.DecodeAccess(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidTokenError()
	}

	return user, nil
}
