package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/newspulse/internal/model"
)

// stateNotifyChannel は状態ドキュメント変更通知のNOTIFYチャネル名。
// ペイロードは "user_id|kind" 形式（notify_state_documentトリガーが発行する）。
const stateNotifyChannel = "state_documents"

// CASConflictRecorder はCAS競合のメトリクス記録インターフェース。
type CASConflictRecorder interface {
	RecordCASConflict(kind string)
}

// PostgresStateRepo はPostgreSQLを使用した状態ドキュメントリポジトリ。
// 書き込みはリビジョン比較付きで行い、変更通知はLISTEN/NOTIFYで配信する。
type PostgresStateRepo struct {
	db       *sql.DB
	listener *StateListener
	metrics  CASConflictRecorder
}

// NewPostgresStateRepo はPostgresStateRepoを生成する。
// listenerは変更購読に使用する。metricsはnil可（記録なし）。
func NewPostgresStateRepo(db *sql.DB, listener *StateListener, metrics CASConflictRecorder) *PostgresStateRepo {
	return &PostgresStateRepo{
		db:       db,
		listener: listener,
		metrics:  metrics,
	}
}

// Read は指定ユーザー・種別の状態ドキュメントを取得する。見つからない場合はnilを返す。
func (r *PostgresStateRepo) Read(ctx context.Context, userID string, kind model.StateKind) (*model.StateDocument, error) {
	doc := &model.StateDocument{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, kind, doc, revision, updated_at
		 FROM state_documents WHERE user_id = $1 AND kind = $2`,
		userID, string(kind),
	).Scan(&doc.UserID, &doc.Kind, &doc.Doc, &doc.Revision, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("状態ドキュメントの取得に失敗しました: %w", err)
	}

	return doc, nil
}

// Write は状態ドキュメントを無条件にUPSERTする。リビジョンは1増加する。
// 変更通知はnotify_state_documentトリガーが同一トランザクション内で発行する。
func (r *PostgresStateRepo) Write(ctx context.Context, userID string, kind model.StateKind, doc []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO state_documents (user_id, kind, doc, revision, updated_at)
		 VALUES ($1, $2, $3, 1, now())
		 ON CONFLICT (user_id, kind) DO UPDATE SET
		     doc = EXCLUDED.doc,
		     revision = state_documents.revision + 1,
		     updated_at = now()`,
		userID, string(kind), doc,
	)
	if err != nil {
		return fmt.Errorf("状態ドキュメントの書き込みに失敗しました: %w", err)
	}
	return nil
}

// CompareAndSwap はリビジョンが一致する場合のみドキュメントを更新する。
// expectedRevisionが0の場合は未存在時のみINSERTする。
// 他デバイスの先行書き込みでリビジョンがずれた場合はfalseを返し、
// 呼び出し側が再読み込みして遷移を計算し直す。
func (r *PostgresStateRepo) CompareAndSwap(
	ctx context.Context,
	userID string,
	kind model.StateKind,
	doc []byte,
	expectedRevision int64,
) (bool, error) {
	var result sql.Result
	var err error

	if expectedRevision == 0 {
		// 未存在時のみ作成。既存在の場合は何も更新せずfalseを返す。
		result, err = r.db.ExecContext(ctx,
			`INSERT INTO state_documents (user_id, kind, doc, revision, updated_at)
			 VALUES ($1, $2, $3, 1, now())
			 ON CONFLICT (user_id, kind) DO NOTHING`,
			userID, string(kind), doc,
		)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE state_documents
			 SET doc = $3, revision = revision + 1, updated_at = now()
			 WHERE user_id = $1 AND kind = $2 AND revision = $4`,
			userID, string(kind), doc, expectedRevision,
		)
	}
	if err != nil {
		return false, fmt.Errorf("状態ドキュメントの条件付き書き込みに失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}

	if affected == 0 {
		if r.metrics != nil {
			r.metrics.RecordCASConflict(string(kind))
		}
		return false, nil
	}
	return true, nil
}

// Subscribe は指定ユーザー・種別のドキュメント変更通知チャネルを返す。
// 実際のLISTENはStateListenerが1接続で集約し、ここでは購読の登録のみ行う。
func (r *PostgresStateRepo) Subscribe(ctx context.Context, userID string, kind model.StateKind) (<-chan struct{}, func(), error) {
	if r.listener == nil {
		return nil, nil, fmt.Errorf("変更購読にはStateListenerが必要です")
	}
	ch, cancel := r.listener.Subscribe(userID, kind)
	return ch, cancel, nil
}

// compile-time interface check
var _ StateStore = (*PostgresStateRepo)(nil)
