// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/newspulse/internal/model"
)

// StateStore はユーザーごとの状態ドキュメントの永続化インターフェース。
// ドキュメントは(ユーザーID, 種別)で一意に特定される。
// ストアは複数デバイス・複数プロセスから共有されるため、
// 書き込み側は排他アクセスを前提にしてはならない。
type StateStore interface {
	// Read は指定ユーザー・種別の状態ドキュメントを取得する。見つからない場合はnilを返す。
	Read(ctx context.Context, userID string, kind model.StateKind) (*model.StateDocument, error)

	// Write は状態ドキュメントを無条件にUPSERTする。リビジョンは1増加する。
	Write(ctx context.Context, userID string, kind model.StateKind, doc []byte) error

	// CompareAndSwap はリビジョンが一致する場合のみドキュメントを更新する。
	// expectedRevisionが0の場合は「未存在時のみ作成」を意味する。
	// リビジョン不一致（他デバイスによる先行書き込み）の場合はfalseを返す。
	// エラーはストア障害の場合のみ返す。
	CompareAndSwap(ctx context.Context, userID string, kind model.StateKind, doc []byte, expectedRevision int64) (bool, error)

	// Subscribe は指定ユーザー・種別のドキュメント変更通知チャネルを返す。
	// 通知はティック（struct{}）のみで、購読側は受信のたびにReadで最新を取得する。
	// チャネルは容量1で通知が合流（coalesce）されるため、
	// 複数の変更が重なっても最新のドキュメントだけが観測される。
	// 返される解除関数の呼び出し後に通知が配信されることはない。
	Subscribe(ctx context.Context, userID string, kind model.StateKind) (<-chan struct{}, func(), error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// FriendRepository はフレンドエッジの永続化インターフェース。
type FriendRepository interface {
	// Exists は指定ペアのエッジが存在するかを返す。
	Exists(ctx context.Context, ownerID, friendID string) (bool, error)

	// Create はフレンドエッジを作成する。
	// UNIQUE(owner_id, friend_id)制約により重複作成はエラーになる。
	Create(ctx context.Context, friend *model.Friend) error

	// Delete は指定ペアのエッジを削除する。
	// 存在しないエッジの削除は成功扱い（冪等）で、削除有無をboolで返す。
	Delete(ctx context.Context, ownerID, friendID string) (bool, error)

	// CountByOwner は指定ユーザーのフレンド数を返す。
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// FindByKey は指定キーの記事を取得する。見つからない場合はnilを返す。
	FindByKey(ctx context.Context, key string) (*model.Article, error)

	// Upsert は記事キーをもとに記事を冪等にUPSERTする。
	// 既存記事はタイトル・要約・公開日時が上書きされる（履歴は保持しない）。
	Upsert(ctx context.Context, article *model.Article) error

	// ListRecent は取得日時の降順で記事一覧を返す。
	ListRecent(ctx context.Context, limit int) ([]*model.Article, error)
}
