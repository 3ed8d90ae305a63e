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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordGenerationSuccess()
	RecordGenerationFailure(code string)
	RecordGenerationLatency(duration time.Duration)
	RecordPitchCreated()
	RecordPitchDeleted()
	RecordExport(format string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	generationSuccess prometheus.Counter
	generationFail    *prometheus.CounterVec
	generationLatency prometheus.Histogram
	pitchesCreated    prometheus.Counter
	pitchesDeleted    prometheus.Counter
	exports           *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generationSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitchcraft_generation_success_total",
			Help: "ピッチ生成成功の合計数",
		}),
		generationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchcraft_generation_fail_total",
			Help: "エラーコード別のピッチ生成失敗数",
		}, []string{"code"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pitchcraft_generation_latency_seconds",
			Help:    "生成API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		pitchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitchcraft_pitches_created_total",
			Help: "作成されたピッチの合計数",
		}),
		pitchesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitchcraft_pitches_deleted_total",
			Help: "削除されたピッチの合計数",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchcraft_exports_total",
			Help: "フォーマット別のエクスポート数",
		}, []string{"format"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchcraft_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.generationSuccess,
		c.generationFail,
		c.generationLatency,
		c.pitchesCreated,
		c.pitchesDeleted,
		c.exports,
		c.httpStatus,
	)

	return c
}

// RecordGenerationSuccess はピッチ生成成功を記録する。
func (c *Collector) RecordGenerationSuccess() {
	c.generationSuccess.Inc()
}

// RecordGenerationFailure はピッチ生成失敗をエラーコード付きで記録する。
func (c *Collector) RecordGenerationFailure(code string) {
	c.generationFail.WithLabelValues(code).Inc()
}

// RecordGenerationLatency は生成API呼び出しのレイテンシを記録する。
func (c *Collector) RecordGenerationLatency(duration time.Duration) {
	c.generationLatency.Observe(duration.Seconds())
}

// RecordPitchCreated はピッチ作成を記録する。
func (c *Collector) RecordPitchCreated() {
	c.pitchesCreated.Inc()
}

// RecordPitchDeleted はピッチ削除を記録する。
func (c *Collector) RecordPitchDeleted() {
	c.pitchesDeleted.Inc()
}

// RecordExport はエクスポートをフォーマット（pdf, html）付きで記録する。
func (c *Collector) RecordExport(format string) {
	c.exports.WithLabelValues(format).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
