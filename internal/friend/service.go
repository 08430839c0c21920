// Package friend はフレンドグラフの変更と参照のサービスを提供する。
package friend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/newspulse/internal/model"
	"github.com/hitoshi/newspulse/internal/repository"
)

// Service はフレンドグラフの操作サービス。
// 自己追加・重複・未存在はエラーではなく結果バリアントで返す。
type Service struct {
	friendRepo repository.FriendRepository
	userRepo   repository.UserRepository
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(friendRepo repository.FriendRepository, userRepo repository.UserRepository, logger *slog.Logger) *Service {
	return &Service{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// AddFriend はユーザー名で指定した相手へのフレンドエッジを作成する。
// 判定順序は 自己追加 → 未存在 → 重複 の順で、自分のユーザー名を
// 指定した場合は常にAddFriendSelfになる。ストア障害のみ
// AddFriendFailedとしてErrに詳細が入る。
func (s *Service) AddFriend(ctx context.Context, ownerID, friendUsername string) model.AddFriendResult {
	username := strings.TrimSpace(friendUsername)
	if username == "" {
		// 空のユーザー名はどのユーザーにも解決されない
		return model.AddFriendResult{Outcome: model.AddFriendUserNotFound}
	}

	target, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		s.logger.Error("フレンド対象ユーザーの解決に失敗しました",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return model.AddFriendResult{
			Outcome: model.AddFriendFailed,
			Err:     fmt.Errorf("ユーザーの検索に失敗しました: %w", err),
		}
	}

	// 自己追加の判定は未存在の判定より優先する
	if target != nil && target.ID == ownerID {
		return model.AddFriendResult{Outcome: model.AddFriendSelf}
	}
	if target == nil {
		return model.AddFriendResult{Outcome: model.AddFriendUserNotFound}
	}

	exists, err := s.friendRepo.Exists(ctx, ownerID, target.ID)
	if err != nil {
		return model.AddFriendResult{
			Outcome: model.AddFriendFailed,
			Err:     fmt.Errorf("フレンドエッジの確認に失敗しました: %w", err),
		}
	}
	if exists {
		return model.AddFriendResult{Outcome: model.AddFriendAlreadyFriends}
	}

	edge := &model.Friend{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		FriendID: target.ID,
	}
	if err := s.friendRepo.Create(ctx, edge); err != nil {
		return model.AddFriendResult{
			Outcome: model.AddFriendFailed,
			Err:     fmt.Errorf("フレンドエッジの作成に失敗しました: %w", err),
		}
	}

	s.logger.Info("フレンドを追加しました",
		slog.String("owner_id", ownerID),
		slog.String("friend_id", target.ID),
	)
	return model.AddFriendResult{Outcome: model.AddFriendSuccess, FriendID: target.ID}
}

// RemoveFriend は指定ペアのフレンドエッジを削除する。
// 存在しないエッジの削除も成功扱い（冪等）で、実際に削除が発生したか
// どうかにかかわらずエラーにはならない。
func (s *Service) RemoveFriend(ctx context.Context, ownerID, friendID string) error {
	deleted, err := s.friendRepo.Delete(ctx, ownerID, friendID)
	if err != nil {
		return fmt.Errorf("フレンドエッジの削除に失敗しました: %w", err)
	}

	if deleted {
		s.logger.Info("フレンドを削除しました",
			slog.String("owner_id", ownerID),
			slog.String("friend_id", friendID),
		)
	}
	return nil
}

// FriendCount は指定ユーザーのフレンド数を返す。
func (s *Service) FriendCount(ctx context.Context, ownerID string) (int, error) {
	count, err := s.friendRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("フレンド数の取得に失敗しました: %w", err)
	}
	return count, nil
}
