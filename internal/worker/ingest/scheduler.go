package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FeedFetcherService はフィードインジェストの実行インターフェース。
type FeedFetcherService interface {
	// Fetch は指定フィードをフェッチし、アップサートされた記事数を返す。
	Fetch(ctx context.Context, feedURL string) (int, error)
}

// Scheduler はフィードインジェストのスケジューリングと並列制御を行う。
// ティッカーで定期的に設定済みフィード一覧を走査し、
// semaphoreパターンで最大並列数を制御しながらフェッチを実行する。
type Scheduler struct {
	feedURLs       []string
	fetcher        FeedFetcherService
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	feedURLs []string,
	fetcher FeedFetcherService,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		feedURLs:       feedURLs,
		fetcher:        fetcher,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start はティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("インジェストスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("feed_count", len(s.feedURLs)),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("インジェストスケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は設定済みの全フィードを1回、並列でフェッチする。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	if len(s.feedURLs) == 0 {
		s.logger.Info("インジェスト対象のフィードがありません")
		return
	}

	start := time.Now()
	s.logger.Info("インジェストサイクルを開始します",
		slog.Int("feed_count", len(s.feedURLs)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, feedURL := range s.feedURLs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if _, err := s.fetcher.Fetch(ctx, u); err != nil {
				s.logger.Error("フィードインジェストに失敗しました",
					slog.String("feed_url", u),
					slog.String("error", err.Error()),
				)
			}
		}(feedURL)
	}

	wg.Wait()

	s.logger.Info("インジェストサイクルが完了しました",
		slog.Int("feed_count", len(s.feedURLs)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
