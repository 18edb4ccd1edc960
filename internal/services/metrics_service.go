package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus指标
var (
	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_classifications_total",
			Help: "Total number of classification requests by outcome",
		},
		[]string{"outcome"}, // outcomes: blocked, allowed, degraded
	)

	seedUpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_seed_upserts_total",
			Help: "Total number of seed phrase upserts by result",
		},
		[]string{"result"}, // results: created, updated
	)

	classificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moderation_classification_duration_seconds",
			Help:    "End-to-end duration of the embed + knn classification path",
			Buckets: prometheus.DefBuckets,
		},
	)

	decisionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_decision_cache_lookups_total",
			Help: "Decision cache lookups by result",
		},
		[]string{"result"}, // results: hit, miss
	)
)

// RecordClassification 记录一次分类结果
func RecordClassification(blocked bool, degraded bool) {
	outcome := "allowed"
	if blocked {
		outcome = "blocked"
	}
	if degraded {
		outcome = "degraded"
	}
	classificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordSeedUpsert 记录一次种子写入
func RecordSeedUpsert(result string) {
	seedUpsertsTotal.WithLabelValues(result).Inc()
}

// ObserveClassificationDuration 记录一次判定的端到端耗时
func ObserveClassificationDuration(seconds float64) {
	classificationDuration.Observe(seconds)
}

// RecordCacheLookup 记录一次缓存查询
func RecordCacheLookup(hit bool) {
	if hit {
		decisionCacheLookups.WithLabelValues("hit").Inc()
	} else {
		decisionCacheLookups.WithLabelValues("miss").Inc()
	}
}

// MetricsService 指标服务
type MetricsService struct{}

// NewMetricsService 创建指标服务
func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

// Handler 返回Prometheus指标的HTTP处理器
func (ms *MetricsService) Handler() http.Handler {
	return promhttp.Handler()
}

// ServeHTTP 实现http.Handler接口
func (ms *MetricsService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ms.Handler().ServeHTTP(w, r)
}
