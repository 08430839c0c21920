// Package biasrefresh は信頼度評価カタログの定期再取得ジョブを提供する。
package biasrefresh

import (
	"context"
	"log/slog"
	"time"
)

// CatalogRefresher はカタログ再取得のインターフェース。
// bias.Cacheが実装する。取得失敗時は前回のマッピングが維持される。
type CatalogRefresher interface {
	StartFetching(ctx context.Context) <-chan error
}

// Job は信頼度評価カタログの定期再取得ジョブ。
// 起動直後に1回取得し、以後は設定間隔で再取得する。再取得は
// マッピングのまるごと置き換えで、取得失敗時は前回値が残る。
// 連続失敗時はバックオフを適用して外部ソースへの負荷を抑える。
type Job struct {
	cache    CatalogRefresher
	logger   *slog.Logger
	interval time.Duration

	consecutiveErrors int
	backoffUntil      time.Time
}

// NewJob はJobの新しいインスタンスを生成する。
func NewJob(cache CatalogRefresher, logger *slog.Logger, interval time.Duration) *Job {
	return &Job{
		cache:    cache,
		logger:   logger,
		interval: interval,
	}
}

// Start はジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("信頼度評価リフレッシュジョブを開始しました",
		slog.Duration("interval", j.interval),
	)

	// 起動直後に1回実行
	j.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("信頼度評価リフレッシュジョブを停止しました")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce は1回の再取得を実行し、完了を待つ。
func (j *Job) RunOnce(ctx context.Context) {
	if !j.backoffUntil.IsZero() && time.Now().Before(j.backoffUntil) {
		j.logger.Info("信頼度評価リフレッシュはバックオフ中のためスキップします",
			slog.Time("backoff_until", j.backoffUntil),
		)
		return
	}

	select {
	case err := <-j.cache.StartFetching(ctx):
		if err != nil {
			j.consecutiveErrors++
			backoff := calculateErrorBackoff(j.consecutiveErrors)
			if backoff > 0 {
				j.backoffUntil = time.Now().Add(backoff)
				j.logger.Warn("連続エラーによりバックオフを適用します",
					slog.Int("consecutive_errors", j.consecutiveErrors),
					slog.Duration("backoff_duration", backoff),
				)
			}
			return
		}
		j.consecutiveErrors = 0
		j.backoffUntil = time.Time{}
	case <-ctx.Done():
	}
}

// calculateErrorBackoff は連続エラー回数に基づくバックオフ時間を計算する。
// 3回連続: 30分、5回連続: 1時間、10回連続: 6時間。
func calculateErrorBackoff(consecutiveErrors int) time.Duration {
	switch {
	case consecutiveErrors >= 10:
		return 6 * time.Hour
	case consecutiveErrors >= 5:
		return 1 * time.Hour
	case consecutiveErrors >= 3:
		return 30 * time.Minute
	default:
		return 0
	}
}
