// Package user はユーザー登録とプロフィール取得のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newspulse/internal/model"
	"github.com/hitoshi/newspulse/internal/repository"
)

// Profile はユーザーのプロフィール表示用の集約。
type Profile struct {
	User        *model.User
	FriendCount int
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	friendRepo repository.FriendRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:   userRepo,
		friendRepo: friendRepo,
		logger:     logger,
	}
}

// Register は新規ユーザーを作成する。
// ユーザー名は一意であり、重複する場合はUSERNAME_TAKENエラーを返す。
func (s *Service) Register(ctx context.Context, username, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.NewInvalidUsernameError()
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError(username)
	}

	now := time.Now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.logger.Info("new user registered",
		slog.String("user_id", newUser.ID),
		slog.String("username", newUser.Username),
	)

	return newUser, nil
}

// GetProfile は指定ユーザーのプロフィールを取得する。
// フレンド数を含む。
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}

	count, err := s.friendRepo.CountByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フレンド数の取得に失敗しました: %w", err)
	}

	return &Profile{
		User:        u,
		FriendCount: count,
	}, nil
}
