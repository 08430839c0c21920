// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// リポジトリ・トラッカー・ワーカーから利用する。
type MetricsCollector interface {
	RecordCASConflict(kind string)
	RecordStateNotify(kind string)
	RecordBiasFetchSuccess(sourceCount int)
	RecordBiasFetchFailure()
	RecordIngestSuccess(feedURL string)
	RecordIngestFailure(feedURL string, reason string)
	RecordArticlesUpserted(count int)
	RecordIngestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	casConflicts     *prometheus.CounterVec
	stateNotifies    *prometheus.CounterVec
	biasFetchSuccess prometheus.Counter
	biasFetchFail    prometheus.Counter
	biasSourceCount  prometheus.Gauge
	ingestSuccess    prometheus.Counter
	ingestFail       prometheus.Counter
	articlesUpserted prometheus.Counter
	ingestLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		casConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newspulse_state_cas_conflict_total",
			Help: "状態ドキュメントの条件付き書き込み競合の合計数",
		}, []string{"kind"}),
		stateNotifies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newspulse_state_notify_total",
			Help: "状態ドキュメント変更通知の合計数",
		}, []string{"kind"}),
		biasFetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newspulse_bias_fetch_success_total",
			Help: "信頼度評価カタログ取得成功の合計数",
		}),
		biasFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newspulse_bias_fetch_fail_total",
			Help: "信頼度評価カタログ取得失敗の合計数",
		}),
		biasSourceCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newspulse_bias_source_count",
			Help: "キャッシュ済み信頼度評価のソース数",
		}),
		ingestSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newspulse_ingest_success_total",
			Help: "フィードインジェスト成功の合計数",
		}),
		ingestFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newspulse_ingest_fail_total",
			Help: "フィードインジェスト失敗の合計数",
		}),
		articlesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newspulse_articles_upserted_total",
			Help: "アップサートされた記事の合計数",
		}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newspulse_ingest_latency_seconds",
			Help:    "フィードインジェストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.casConflicts,
		c.stateNotifies,
		c.biasFetchSuccess,
		c.biasFetchFail,
		c.biasSourceCount,
		c.ingestSuccess,
		c.ingestFail,
		c.articlesUpserted,
		c.ingestLatency,
	)

	return c
}

// RecordCASConflict は状態ドキュメントの条件付き書き込み競合を記録する。
func (c *Collector) RecordCASConflict(kind string) {
	c.casConflicts.WithLabelValues(kind).Inc()
}

// RecordStateNotify は状態ドキュメントの変更通知を記録する。
func (c *Collector) RecordStateNotify(kind string) {
	c.stateNotifies.WithLabelValues(kind).Inc()
}

// RecordBiasFetchSuccess はカタログ取得成功とソース数を記録する。
func (c *Collector) RecordBiasFetchSuccess(sourceCount int) {
	c.biasFetchSuccess.Inc()
	c.biasSourceCount.Set(float64(sourceCount))
}

// RecordBiasFetchFailure はカタログ取得失敗を記録する。
func (c *Collector) RecordBiasFetchFailure() {
	c.biasFetchFail.Inc()
}

// RecordIngestSuccess はインジェスト成功を記録する。
func (c *Collector) RecordIngestSuccess(feedURL string) {
	c.ingestSuccess.Inc()
}

// RecordIngestFailure はインジェスト失敗を記録する。
func (c *Collector) RecordIngestFailure(feedURL string, reason string) {
	c.ingestFail.Inc()
}

// RecordArticlesUpserted はアップサートされた記事数を記録する。
func (c *Collector) RecordArticlesUpserted(count int) {
	c.articlesUpserted.Add(float64(count))
}

// RecordIngestLatency はインジェストのレイテンシを記録する。
func (c *Collector) RecordIngestLatency(duration time.Duration) {
	c.ingestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
