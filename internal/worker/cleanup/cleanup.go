// Package cleanup は期限切れセッションと古い記事の自動削除ジョブを提供する。
// 日次バッチとして実行され、どちらの削除も冪等。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newspulse/internal/repository"
)

// ArticlePruner は古い記事の削除のインターフェース。
type ArticlePruner interface {
	// DeleteOlderThan は取得日時が指定時刻より古い記事を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob は期限切れセッションと保持期間超過記事の自動削除ジョブ。
type CleanupJob struct {
	sessionRepo   repository.SessionRepository
	articlePruner ArticlePruner
	logger        *slog.Logger
	RetentionDays int // 記事の保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの記事保持日数は90日。
func NewCleanupJob(sessionRepo repository.SessionRepository, articlePruner ArticlePruner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessionRepo:   sessionRepo,
		articlePruner: articlePruner,
		logger:        logger,
		RetentionDays: 90,
	}
}

// Run は期限切れセッションと保持期間超過記事を削除する。
// 削除対象がない場合でもエラーにならない（冪等）。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionsDeleted, err := j.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -j.RetentionDays)
	articlesDeleted, err := j.articlePruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("古い記事の削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("古い記事の削除に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("sessions_deleted", sessionsDeleted),
		slog.Int64("articles_deleted", articlesDeleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
