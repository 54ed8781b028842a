// Package transaction は署名付きトランザクションの検証と記録を提供する。
package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/tradeledger/internal/metrics"
	"github.com/hitoshi/tradeledger/internal/model"
	"github.com/hitoshi/tradeledger/internal/repository"
	"github.com/hitoshi/tradeledger/internal/security"
)

// 拒否理由（メトリクスのラベル）
const (
	RejectInvalidRequest   = "invalid_request"
	RejectInvalidSignature = "invalid_signature"
	RejectUserNotFound     = "user_not_found"
	RejectOwnerMismatch    = "owner_mismatch"
	RejectConflict         = "conflict"
)

// maxIDLength はトランザクションIDの最大文字数（transactions.id VARCHAR(255)）。
const maxIDLength = 255

// Service はトランザクションのサービス層。
type Service struct {
	ledger    repository.LedgerRepository
	txRepo    repository.TransactionRepository
	userRepo  repository.UserRepository
	secret    string
	collector metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// secretは署名検証に使う共有シークレット。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	ledger repository.LedgerRepository,
	txRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	secret string,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		ledger:    ledger,
		txRepo:    txRepo,
		userRepo:  userRepo,
		secret:    secret,
		collector: collector,
	}
}

// Create は署名を検証してからトランザクションを記録し、アカウント残高を更新する。
//
// 署名は送信されたままの値で検証し、UUIDは正規形に変換して保存する。
// IDは署名対象かつ保存値のため変換せず、前後の空白を含むものは拒否する。
// アカウントが存在しなければ残高0で作成する。記録と残高更新は1つのDBトランザクションで行われ、
// 失敗時は何も永続化されない。同一IDの再送はTransactionConflictとなり二重計上しない。
func (s *Service) Create(ctx context.Context, in model.TransactionCreate) (*model.LedgerEntry, error) {
	id := in.ID
	if strings.TrimSpace(id) == "" {
		s.reject(RejectInvalidRequest, in)
		return nil, model.NewInvalidRequestError("id is required")
	}
	if strings.TrimSpace(id) != id {
		s.reject(RejectInvalidRequest, in)
		return nil, model.NewInvalidRequestError("id must not have leading or trailing whitespace")
	}
	if utf8.RuneCountInString(id) > maxIDLength {
		s.reject(RejectInvalidRequest, in)
		return nil, model.NewInvalidRequestError(fmt.Sprintf("id must be at most %d characters", maxIDLength))
	}

	if !security.VerifySignature(in.Signature, in.AccountID, in.Amount, id, in.UserID, s.secret) {
		s.reject(RejectInvalidSignature, in)
		return nil, model.NewInvalidSignatureError()
	}

	accountID, err := uuid.Parse(in.AccountID)
	if err != nil {
		s.reject(RejectInvalidRequest, in)
		return nil, model.NewInvalidRequestError("account_id must be a UUID")
	}
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		s.reject(RejectInvalidRequest, in)
		return nil, model.NewInvalidRequestError("user_id must be a UUID")
	}

	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.reject(RejectUserNotFound, in)
		return nil, model.NewUserNotFoundError()
	}

	entry, err := s.ledger.Apply(ctx, &model.Transaction{
		ID:        id,
		AccountID: accountID.String(),
		UserID:    userID.String(),
		Amount:    in.Amount,
		Signature: in.Signature,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOwnerMismatch):
			s.reject(RejectOwnerMismatch, in)
			return nil, model.NewTransactionUserMismatchError(accountID.String())
		case errors.Is(err, repository.ErrConflict):
			s.reject(RejectConflict, in)
			return nil, model.NewTransactionConflictError(id)
		}
		return nil, fmt.Errorf("failed to apply transaction: %w", err)
	}

	s.collector.RecordTransactionCreated(entry.AccountCreated)
	slog.Info("transaction recorded",
		slog.String("transaction_id", id),
		slog.String("account_id", accountID.String()),
		slog.Int64("amount", in.Amount),
		slog.Int64("balance", entry.Balance),
		slog.Bool("account_created", entry.AccountCreated),
	)

	return entry, nil
}

// ListByUser はユーザーのトランザクションを作成日時の昇順で返す。
// ユーザーが存在しない場合はTransactionNotFoundエラーを返す。トランザクションがない場合は空のスライス。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewTransactionNotFoundError()
	}

	txs, err := s.txRepo.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if txs == nil {
		txs = []*model.Transaction{}
	}
	return txs, nil
}

func (s *Service) reject(reason string, in model.TransactionCreate) {
	s.collector.RecordTransactionRejected(reason)
	slog.Warn("transaction rejected",
		slog.String("reason", reason),
		slog.String("transaction_id", in.ID),
		slog.String("account_id", in.AccountID),
	)
}
