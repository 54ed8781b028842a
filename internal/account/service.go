// Package account はアカウント（残高台帳）のドメインロジックを提供する。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/tradeledger/internal/model"
	"github.com/hitoshi/tradeledger/internal/repository"
)

// Service はアカウント管理のサービス層。
type Service struct {
	accountRepo repository.AccountRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(accountRepo repository.AccountRepository) *Service {
	return &Service{accountRepo: accountRepo}
}

// Create はアカウントを作成する。IDが空の場合は生成する。
// IDの重複、または存在しないユーザーを指定した場合はAccountConflictエラーを返す。
func (s *Service) Create(ctx context.Context, in model.AccountCreate) (*model.Account, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	} else {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, model.NewInvalidRequestError("id must be a UUID")
		}
		id = parsed.String()
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return nil, model.NewInvalidRequestError("user_id must be a UUID")
	}

	account, err := s.accountRepo.Create(ctx, &model.Account{
		ID:      id,
		Balance: in.Balance,
		UserID:  userID.String(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.NewAccountConflictError()
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("user_id", account.UserID),
	)

	return account, nil
}

// Get は指定IDのアカウントを取得する。存在しない場合はAccountNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(id)
	}
	return account, nil
}

// ListByUser はユーザーのアカウント一覧をトランザクション付きで返す。
// アカウントがない場合は空のスライスを返す。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.AccountWithTransactions, error) {
	accounts, err := s.accountRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		accounts = []*model.AccountWithTransactions{}
	}
	return accounts, nil
}
