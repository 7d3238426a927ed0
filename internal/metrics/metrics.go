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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordTokenVerification(ok bool)
	RecordCodeExchange(ok bool)
	RecordUserUpsert()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordTasksPurged(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	verifySuccess   prometheus.Counter
	verifyFail      prometheus.Counter
	exchangeSuccess prometheus.Counter
	exchangeFail    prometheus.Counter
	userUpserts     prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	tasksPurged     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		verifySuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todolist_token_verify_success_total",
			Help: "IDトークン検証成功の合計数",
		}),
		verifyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todolist_token_verify_fail_total",
			Help: "IDトークン検証失敗の合計数",
		}),
		exchangeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todolist_code_exchange_success_total",
			Help: "認可コード交換成功の合計数",
		}),
		exchangeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todolist_code_exchange_fail_total",
			Help: "認可コード交換失敗の合計数",
		}),
		userUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todolist_user_upserts_total",
			Help: "ユーザープロフィールUPSERTの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todolist_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "todolist_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tasksPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todolist_tasks_purged_total",
			Help: "保持期間超過で物理削除されたタスクの合計数",
		}),
	}

	reg.MustRegister(
		c.verifySuccess,
		c.verifyFail,
		c.exchangeSuccess,
		c.exchangeFail,
		c.userUpserts,
		c.httpStatus,
		c.requestLatency,
		c.tasksPurged,
	)

	return c
}

// RecordTokenVerification はIDトークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(ok bool) {
	if ok {
		c.verifySuccess.Inc()
	} else {
		c.verifyFail.Inc()
	}
}

// RecordCodeExchange は認可コード交換の結果を記録する。
func (c *Collector) RecordCodeExchange(ok bool) {
	if ok {
		c.exchangeSuccess.Inc()
	} else {
		c.exchangeFail.Inc()
	}
}

// RecordUserUpsert はユーザープロフィールのUPSERTを記録する。
func (c *Collector) RecordUserUpsert() {
	c.userUpserts.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordTasksPurged は物理削除されたタスク数を記録する。
func (c *Collector) RecordTasksPurged(count int) {
	c.tasksPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
