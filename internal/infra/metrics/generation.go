package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		genCalls,
		genRetries,
		genLatencyMs,
	)
}

var (
	genCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_calls_total",
			Help: "Text-generation calls per provider/model and final outcome.",
		},
		[]string{"provider", "model", "success"},
	)

	genRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_retries_total",
			Help: "Retry sleeps taken before re-issuing a generation call.",
		},
		[]string{"provider", "model"},
	)

	genLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_latency_ms",
			Help:    "Generation call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"provider", "model"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ObserveGeneration(provider, model string, latencyMs int64, success bool) {
	genCalls.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).Inc()
	genLatencyMs.WithLabelValues(norm(provider), norm(model)).Observe(float64(latencyMs))
}

func IncRetry(provider, model string) {
	genRetries.WithLabelValues(norm(provider), norm(model)).Inc()
}
