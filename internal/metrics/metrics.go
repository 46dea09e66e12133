// Package metrics registers the Prometheus collectors exposed on
// /metrics: tool invocation counts by outcome and collaborator (vector
// store, embedding service, chat service) call latency.
//
// Grounded on _examples/kraklabs-cie's pkg/ingestion/metrics.go: a
// package-level collector struct built once via sync.Once and registered
// against the default Prometheus registry, then driven by small Inc/Observe
// helper methods instead of threading *prometheus.Registry through every
// call site.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	once sync.Once

	toolCalls *prometheus.CounterVec

	vectorStoreLatency  prometheus.Histogram
	embeddingLatency    prometheus.Histogram
	chatLatency         prometheus.Histogram
}

var m collectors

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

func (c *collectors) init() {
	c.once.Do(func() {
		c.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "code_compass_tool_calls_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"})

		c.vectorStoreLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "code_compass_vectorstore_seconds",
			Help:    "Vector store search call latency.",
			Buckets: latencyBuckets,
		})
		c.embeddingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "code_compass_embedding_seconds",
			Help:    "Embedding service call latency.",
			Buckets: latencyBuckets,
		})
		c.chatLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "code_compass_chat_seconds",
			Help:    "Chat completion call latency.",
			Buckets: latencyBuckets,
		})

		prometheus.MustRegister(c.toolCalls, c.vectorStoreLatency, c.embeddingLatency, c.chatLatency)
	})
}

// RecordToolCall increments the per-tool, per-outcome invocation counter.
// outcome is "ok" or the failure Code, e.g. "QDRANT_UNAVAILABLE".
func RecordToolCall(tool, outcome string) {
	m.init()
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveVectorStoreLatency records one vector store call's duration.
func ObserveVectorStoreLatency(d time.Duration) {
	m.init()
	m.vectorStoreLatency.Observe(d.Seconds())
}

// ObserveEmbeddingLatency records one embedding call's duration.
func ObserveEmbeddingLatency(d time.Duration) {
	m.init()
	m.embeddingLatency.Observe(d.Seconds())
}

// ObserveChatLatency records one chat completion call's duration.
func ObserveChatLatency(d time.Duration) {
	m.init()
	m.chatLatency.Observe(d.Seconds())
}
