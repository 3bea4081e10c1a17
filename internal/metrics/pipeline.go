package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics: inference calls and asset lifecycle.
var (
	InferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapseek",
			Name:      "inference_requests_total",
			Help:      "Total number of model inference requests",
		},
		[]string{"model", "status"},
	)

	InferenceRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snapseek",
			Name:      "inference_request_duration_seconds",
			Help:      "Model inference request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	AssetSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapseek",
			Name:      "asset_saves_total",
			Help:      "Local image asset saves by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)

	AssetUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapseek",
			Name:      "asset_uploads_total",
			Help:      "Durable image asset uploads by outcome",
		},
		[]string{"status"}, // "ok" / "error" / "skipped"
	)

	AssetEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snapseek",
			Name:      "asset_evictions_total",
			Help:      "Local image assets evicted after the retention window",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(InferenceRequestsTotal)
	prometheus.MustRegister(InferenceRequestDuration)
	prometheus.MustRegister(AssetSavesTotal)
	prometheus.MustRegister(AssetUploadsTotal)
	prometheus.MustRegister(AssetEvictionsTotal)
	pipelineMetricsRegistered = true
}
