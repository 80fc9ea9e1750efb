// Package metrics defines the Prometheus collectors for indexing, retrieval and chat.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docchat"

var (
	// EmbeddingDuration tracks upstream embedding latency.
	// Labels: operation (embed_one, embed_many)
	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "duration_seconds",
			Help:      "Duration of embedding requests in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// EmbeddingBatchSize tracks how many texts are sent per upstream call.
	EmbeddingBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "batch_size",
			Help:      "Number of texts per embedding request",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// EmbeddingErrors counts failed embedding requests.
	// Labels: operation (embed_one, embed_many)
	EmbeddingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Total number of failed embedding requests",
		},
		[]string{"operation"},
	)

	// EmbeddingDropped counts texts whose embedding was missing or malformed.
	EmbeddingDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "dropped_texts_total",
			Help:      "Total number of texts dropped from batch embedding results",
		},
	)

	// ChunksIndexed counts chunks stored in the index.
	ChunksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "chunks_total",
			Help:      "Total number of chunks embedded and stored",
		},
	)

	// DocumentsIndexed is the number of documents currently held in the index.
	DocumentsIndexed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "documents",
			Help:      "Number of documents currently indexed",
		},
	)

	// RetrievalDuration tracks end-to-end retrieval latency including query embedding.
	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Duration of retrieval operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// CompletionDeltas counts text fragments forwarded from the model.
	CompletionDeltas = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "completion",
			Name:      "deltas_total",
			Help:      "Total number of streamed text fragments",
		},
	)

	// CompletionResults counts finished completions.
	// Labels: result (success, failed, interrupted, cancelled)
	CompletionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "completion",
			Name:      "results_total",
			Help:      "Total number of completions by result",
		},
		[]string{"result"},
	)

	// ActiveSessions is the number of sessions holding at least one turn.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of sessions with stored turns",
		},
	)

	// IndexJobs counts background index jobs by final status.
	// Labels: status (completed, retried, failed)
	IndexJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "index_total",
			Help:      "Total number of processed index jobs by outcome",
		},
		[]string{"status"},
	)
)

// ObserveEmbedding records one upstream embedding call.
func ObserveEmbedding(operation string, start time.Time, batchSize int, err error) {
	EmbeddingDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if batchSize > 0 {
		EmbeddingBatchSize.Observe(float64(batchSize))
	}
	if err != nil {
		EmbeddingErrors.WithLabelValues(operation).Inc()
	}
}
