// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/tradeledger/internal/model"
	"github.com/hitoshi/tradeledger/internal/repository"
	"github.com/hitoshi/tradeledger/internal/security"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.NameSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sanitizer security.NameSanitizerService) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
	}
}

// Create はユーザーを作成する。パスワードはbcryptでハッシュ化し、表示名はサニタイズして保存する。
// メールアドレスが重複する場合はUserConflictエラーを返す。
func (s *Service) Create(ctx context.Context, in model.UserCreate) (*model.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, model.NewInvalidRequestError("email is required")
	}
	if in.Password == "" {
		return nil, model.NewInvalidRequestError("password is required")
	}

	hashed, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.Create(ctx, &model.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hashed,
		FullName:       s.sanitizer.Sanitize(in.FullName),
		IsAdmin:        in.IsAdmin,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.NewUserConflictError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created",
		slog.String("user_id", user.ID),
		slog.Bool("is_admin", user.IsAdmin),
	)

	return user, nil
}

// GetByID は指定IDのユーザーを取得する。存在しない場合はUserNotFoundエラーを返す。
func (s *Service) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// List は条件に一致するユーザーを返す。該当ページが空の場合はUserNotFoundエラーを返す。
func (s *Service) List(ctx context.Context, q model.UserQuery) (*model.UserList, error) {
	if q.Offset < 0 || q.Limit < 0 {
		return nil, model.NewInvalidRequestError("offset and limit must not be negative")
	}

	list, err := s.userRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if len(list.Users) == 0 {
		return nil, model.NewUserNotFoundError()
	}
	return list, nil
}

// Update はユーザーを部分更新する。
// 未指定とnullのフィールドは変更しない。is_adminはallowAdminがtrueの場合のみ反映する。
func (s *Service) Update(ctx context.Context, id string, patch model.UserPatch, allowAdmin bool) (*model.User, error) {
	var changes model.UserChanges

	if email, ok := patch.Email.Get(); ok {
		email = strings.TrimSpace(email)
		if email == "" {
			return nil, model.NewInvalidRequestError("email must not be empty")
		}
		changes.Email = &email
	}
	if password, ok := patch.Password.Get(); ok {
		if password == "" {
			return nil, model.NewInvalidRequestError("password must not be empty")
		}
		hashed, err := security.HashPassword(password)
		if err != nil {
			return nil, err
		}
		changes.HashedPassword = &hashed
	}
	if fullName, ok := patch.FullName.Get(); ok {
		sanitized := s.sanitizer.Sanitize(fullName)
		changes.FullName = &sanitized
	}
	if isAdmin, ok := patch.IsAdmin.Get(); ok && allowAdmin {
		changes.IsAdmin = &isAdmin
	}

	user, err := s.userRepo.Update(ctx, id, changes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewUserNotFoundError()
		case errors.Is(err, repository.ErrConflict):
			return nil, model.NewUserConflictError()
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("user updated", slog.String("user_id", id))

	return user, nil
}

// Delete はユーザーを削除する。アカウントとトランザクションはCASCADE削除される。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user deleted", slog.String("user_id", id))

	return nil
}
