package bias

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/newspulse/internal/model"
	"github.com/hitoshi/newspulse/internal/watch"
)

// CatalogFetcher は信頼度評価カタログ取得のインターフェース。
// テスト時にモックに差し替え可能。
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]model.SourceRating, error)
}

// FetchRecorder はカタログ取得結果のメトリクス記録インターフェース。
type FetchRecorder interface {
	RecordBiasFetchSuccess(sourceCount int)
	RecordBiasFetchFailure()
}

// Cache はソース名から信頼度評価への解決キャッシュ。
// カタログは外部ソースから一括取得し、正規化済みソース名をキーとする
// マップとしてまるごと公開する（部分更新はしない）。取得は
// シングルフライトで、同時に複数の呼び出し元が要求しても外部への
// リクエストは1つにまとめられる。
type Cache struct {
	fetcher CatalogFetcher
	logger  *slog.Logger
	metrics FetchRecorder
	group   singleflight.Group
	value   *watch.Value[map[string]model.BiasRating]
}

// NewCache はCacheの新しいインスタンスを生成する。
func NewCache(fetcher CatalogFetcher, logger *slog.Logger, metrics FetchRecorder) *Cache {
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		value:   watch.NewValue[map[string]model.BiasRating](),
	}
}

// StartFetching はカタログ取得を開始し、完了を通知するチャネルを返す。
// 取得中に再度呼ばれた場合は進行中の取得に相乗りし、重複リクエストを
// 発行しない。取得は呼び出し元のキャンセルから切り離されて完走する
// （結果はキャッシュされ以後の読み取りに使われるため）。
// 成功時はマッピングをまるごと置き換える（マージはしない）。
func (c *Cache) StartFetching(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	resultCh := c.group.DoChan("catalog", func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)

		ratings, err := c.fetcher.FetchCatalog(fetchCtx)
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordBiasFetchFailure()
			}
			c.logger.Error("信頼度評価カタログの取得に失敗しました",
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		mapping := make(map[string]model.BiasRating, len(ratings))
		for _, r := range ratings {
			key := model.NormalizeSourceName(r.SourceName)
			if key == "" {
				continue
			}
			mapping[key] = model.ParseBiasRating(r.BiasRating)
		}

		c.value.Set(mapping)

		if c.metrics != nil {
			c.metrics.RecordBiasFetchSuccess(len(mapping))
		}
		c.logger.Info("信頼度評価カタログを更新しました",
			slog.Int("source_count", len(mapping)),
		)

		return mapping, nil
	})

	go func() {
		res := <-resultCh
		done <- res.Err
	}()

	return done
}

// RatingFor は指定ソースの評価を返す。カタログ未取得または未知の
// ソースの場合はBiasNeutralを返す。ネットワークを待たないキャッシュ
// 専用の読み取り。
func (c *Cache) RatingFor(sourceName string) model.BiasRating {
	mapping, ok := c.value.Get()
	if !ok {
		return model.BiasNeutral
	}

	rating, found := mapping[model.NormalizeSourceName(sourceName)]
	if !found {
		return model.BiasNeutral
	}
	return rating
}

// Mappings は現在のマッピング全体を返す。未取得の場合は空マップ。
// 返り値は呼び出し元が変更しないこと。
func (c *Cache) Mappings() map[string]model.BiasRating {
	mapping, ok := c.value.Get()
	if !ok {
		return map[string]model.BiasRating{}
	}
	return mapping
}

// Watch はマッピングの更新を受け取るチャネルと購読解除関数を返す。
// 取得成功のたびに新しいマッピング全体が配信される。
func (c *Cache) Watch() (<-chan map[string]model.BiasRating, func()) {
	return c.value.Subscribe()
}
