package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion pipeline Prometheus metrics.
var (
	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsift",
			Name:      "ingest_documents_total",
			Help:      "Total number of processed documents by outcome",
		},
		[]string{"outcome"}, // "ready" / "failed" / "deduplicated"
	)

	IngestStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsift",
			Name:      "ingest_stage_duration_seconds",
			Help:      "Duration of each ingestion pipeline stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"}, // "parsing" / "chunking" / "embedding" / "storing"
	)

	IngestQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsift",
			Name:      "ingest_queue_depth",
			Help:      "Number of ingestion jobs waiting for a worker",
		},
	)

	IngestWorkersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsift",
			Name:      "ingest_workers_running",
			Help:      "Number of ingestion jobs currently being processed",
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers Prometheus ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(IngestStageDuration)
	prometheus.MustRegister(IngestQueueDepth)
	prometheus.MustRegister(IngestWorkersRunning)
	ingestMetricsRegistered = true
}
