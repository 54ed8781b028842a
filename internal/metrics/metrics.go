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
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(route string, duration time.Duration)
	RecordTransactionCreated(accountCreated bool)
	RecordTransactionRejected(reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus           *prometheus.CounterVec
	requestLatency       *prometheus.HistogramVec
	transactionsCreated  *prometheus.CounterVec
	transactionsRejected *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeledger_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradeledger_http_request_duration_seconds",
			Help:    "ルート別のリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		transactionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeledger_transactions_created_total",
			Help: "記録されたトランザクションの合計数",
		}, []string{"account_created"}),
		transactionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeledger_transactions_rejected_total",
			Help: "拒否されたトランザクションの理由別合計数",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.transactionsCreated,
		c.transactionsRejected,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はルートパターン単位でリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(route string, duration time.Duration) {
	c.requestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordTransactionCreated はトランザクションの記録を数える。
func (c *Collector) RecordTransactionCreated(accountCreated bool) {
	c.transactionsCreated.WithLabelValues(strconv.FormatBool(accountCreated)).Inc()
}

// RecordTransactionRejected はトランザクションの拒否を理由別に数える。
func (c *Collector) RecordTransactionRejected(reason string) {
	c.transactionsRejected.WithLabelValues(reason).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordHTTPStatus(int)                       {}
func (NopCollector) RecordRequestLatency(string, time.Duration) {}
func (NopCollector) RecordTransactionCreated(bool)              {}
func (NopCollector) RecordTransactionRejected(string)           {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
