package repository

import (
	"context"
	"fmt"

	"database/sql"

	"github.com/hitoshi/newspulse/internal/model"
)

// PostgresFriendRepo はPostgreSQLを使用したフレンドエッジリポジトリ。
type PostgresFriendRepo struct {
	db *sql.DB
}

// NewPostgresFriendRepo はPostgresFriendRepoを生成する。
func NewPostgresFriendRepo(db *sql.DB) *PostgresFriendRepo {
	return &PostgresFriendRepo{db: db}
}

// Exists は指定ペアのエッジが存在するかを返す。
func (r *PostgresFriendRepo) Exists(ctx context.Context, ownerID, friendID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM friends WHERE owner_id = $1 AND friend_id = $2)`,
		ownerID, friendID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("フレンドエッジの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create はフレンドエッジを作成する。
// UNIQUE(owner_id, friend_id)制約により、並行する重複追加は一方が失敗する。
func (r *PostgresFriendRepo) Create(ctx context.Context, friend *model.Friend) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friends (id, owner_id, friend_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		friend.ID, friend.OwnerID, friend.FriendID, friend.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("フレンドエッジの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定ペアのエッジを削除する。削除有無をboolで返す。
// 存在しないエッジの削除もエラーにはしない（冪等）。
func (r *PostgresFriendRepo) Delete(ctx context.Context, ownerID, friendID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM friends WHERE owner_id = $1 AND friend_id = $2`,
		ownerID, friendID,
	)
	if err != nil {
		return false, fmt.Errorf("フレンドエッジの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除行数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// CountByOwner は指定ユーザーのフレンド数を返す。
func (r *PostgresFriendRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM friends WHERE owner_id = $1`,
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("フレンド数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ FriendRepository = (*PostgresFriendRepo)(nil)
