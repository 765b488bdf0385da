// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordAsk(resourceCount int)
	RecordResourceSearchFailure()
	RecordQueryPersistFailure()
	RecordProfileCreateFailure()
	RecordProviderError(operation string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	askRequests        prometheus.Counter
	resourcesReturned  prometheus.Histogram
	resourceSearchFail prometheus.Counter
	queryPersistFail   prometheus.Counter
	profileCreateFail  prometheus.Counter
	providerErrors     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jiji_http_requests_total",
			Help: "HTTPリクエストの合計数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jiji_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		askRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jiji_ask_requests_total",
			Help: "処理された質問の合計数",
		}),
		resourcesReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jiji_resources_returned",
			Help:    "1回の質問で返却された学習リソース数",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
		resourceSearchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jiji_resource_search_failures_total",
			Help: "学習リソース検索失敗の合計数",
		}),
		queryPersistFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jiji_query_persist_failures_total",
			Help: "質問履歴の保存失敗の合計数",
		}),
		profileCreateFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jiji_profile_create_failures_total",
			Help: "プロフィール作成失敗の合計数",
		}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jiji_provider_errors_total",
			Help: "認証プロバイダーが返したエラーの合計数",
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.askRequests,
		c.resourcesReturned,
		c.resourceSearchFail,
		c.queryPersistFail,
		c.profileCreateFail,
		c.providerErrors,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルのカーディナリティを抑える。
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAsk は質問の処理と返却したリソース数を記録する。
func (c *Collector) RecordAsk(resourceCount int) {
	c.askRequests.Inc()
	c.resourcesReturned.Observe(float64(resourceCount))
}

// RecordResourceSearchFailure はリソース検索失敗を記録する。
func (c *Collector) RecordResourceSearchFailure() {
	c.resourceSearchFail.Inc()
}

// RecordQueryPersistFailure は質問履歴の保存失敗を記録する。
func (c *Collector) RecordQueryPersistFailure() {
	c.queryPersistFail.Inc()
}

// RecordProfileCreateFailure はプロフィール作成失敗を記録する。
func (c *Collector) RecordProfileCreateFailure() {
	c.profileCreateFail.Inc()
}

// RecordProviderError は認証プロバイダーのエラーを操作別に記録する。
func (c *Collector) RecordProviderError(operation string) {
	c.providerErrors.WithLabelValues(operation).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
