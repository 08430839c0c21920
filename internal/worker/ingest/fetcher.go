// Package ingest はニュースフィードのバックグラウンドインジェストを提供する。
// スケジューラとフェッチャーを含み、取得した記事は安定キーで冪等にUPSERTされる。
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newspulse/internal/article"
	"github.com/hitoshi/newspulse/internal/model"
	"github.com/hitoshi/newspulse/internal/repository"
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Sanitizer は記事要約HTMLのサニタイズのインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// IngestRecorder はインジェスト結果のメトリクス記録インターフェース。
type IngestRecorder interface {
	RecordIngestSuccess(feedURL string)
	RecordIngestFailure(feedURL string, reason string)
	RecordArticlesUpserted(count int)
	RecordIngestLatency(duration time.Duration)
}

// Fetcher は個別フィードのHTTPフェッチ・パース・記事保存を行う。
// SSRF検証、gofeedによるパース、要約のサニタイズ、記事のUPSERTを実行する。
type Fetcher struct {
	articleRepo repository.ArticleRepository
	ssrfGuard   SSRFValidator
	sanitizer   Sanitizer
	metrics     IngestRecorder
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(
	articleRepo repository.ArticleRepository,
	ssrfGuard SSRFValidator,
	sanitizer Sanitizer,
	metrics IngestRecorder,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *Fetcher {
	return &Fetcher{
		articleRepo: articleRepo,
		ssrfGuard:   ssrfGuard,
		sanitizer:   sanitizer,
		metrics:     metrics,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch は指定フィードをフェッチし、含まれる記事をUPSERTする。
// アップサートされた記事数を返す。
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (int, error) {
	start := time.Now()
	defer func() {
		if f.metrics != nil {
			f.metrics.RecordIngestLatency(time.Since(start))
		}
	}()

	// SSRF検証
	if err := f.ssrfGuard.ValidateURL(feedURL); err != nil {
		f.logger.Error("SSRF検証に失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		f.recordFailure(feedURL, "ssrf")
		return 0, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	// HTTPリクエスト構築
	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "NewsPulse/1.0 News Reader")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	// HTTPリクエスト実行
	resp, err := client.Do(req)
	if err != nil {
		f.logger.Error("HTTPリクエストに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		f.recordFailure(feedURL, "http")
		return 0, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("フィードがエラーステータスを返しました",
			slog.String("feed_url", feedURL),
			slog.Int("http_status", resp.StatusCode),
		)
		f.recordFailure(feedURL, "http_status")
		return 0, fmt.Errorf("フィードがステータス %d を返しました", resp.StatusCode)
	}

	// レスポンスボディを読み込み（最大サイズ制限付き）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		f.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		f.recordFailure(feedURL, "read")
		return 0, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	// gofeedでフィードをパース
	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		f.logger.Error("フィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		f.recordFailure(feedURL, "parse")
		return 0, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	parsedArticles := convertGofeedItems(parsedFeed)

	// 記事を1件ずつUPSERT（キーはリンクURLから導出）
	upserted := 0
	for _, pa := range parsedArticles {
		if ctx.Err() != nil {
			return upserted, ctx.Err()
		}

		key, err := article.Key(pa.Link)
		if err != nil {
			f.logger.Warn("記事キーの導出に失敗したためスキップします",
				slog.String("feed_url", feedURL),
				slog.String("link", pa.Link),
				slog.String("error", err.Error()),
			)
			continue
		}

		a := &model.Article{
			Key:         key,
			Title:       pa.Title,
			Link:        pa.Link,
			Source:      pa.Source,
			Summary:     f.sanitizer.Sanitize(pa.Summary),
			PublishedAt: pa.PublishedAt,
			FetchedAt:   time.Now(),
		}
		if err := f.articleRepo.Upsert(ctx, a); err != nil {
			f.logger.Error("記事のUPSERTに失敗しました",
				slog.String("article_key", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		upserted++
	}

	if f.metrics != nil {
		f.metrics.RecordIngestSuccess(feedURL)
		f.metrics.RecordArticlesUpserted(upserted)
	}

	f.logger.Info("フィードインジェストが完了しました",
		slog.String("feed_url", feedURL),
		slog.Int("articles_total", len(parsedArticles)),
		slog.Int("articles_upserted", upserted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return upserted, nil
}

func (f *Fetcher) recordFailure(feedURL, reason string) {
	if f.metrics != nil {
		f.metrics.RecordIngestFailure(feedURL, reason)
	}
}

// convertGofeedItems はgofeedの記事をmodel.ParsedArticleに変換する。
// リンクのない記事は安定キーを導出できないためスキップする。
func convertGofeedItems(feed *gofeed.Feed) []model.ParsedArticle {
	source := feed.Title
	parsedArticles := make([]model.ParsedArticle, 0, len(feed.Items))

	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}

		parsed := model.ParsedArticle{
			Title:   item.Title,
			Link:    item.Link,
			Source:  source,
			Summary: item.Description,
		}

		// Descriptionが空の場合はContentを使用
		if parsed.Summary == "" && item.Content != "" {
			parsed.Summary = item.Content
		}

		// 公開日時
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			parsed.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			parsed.PublishedAt = &t
		}

		parsedArticles = append(parsedArticles, parsed)
	}

	return parsedArticles
}
