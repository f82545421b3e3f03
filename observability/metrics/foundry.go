package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FoundryMetrics tracks transaction throughput and outcomes of the node.
type FoundryMetrics struct {
	transactions *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	events       *prometheus.CounterVec
	height       prometheus.Gauge
}

var (
	foundryOnce     sync.Once
	foundryRegistry *FoundryMetrics
)

// Foundry returns the lazily-initialised metrics registry of the node.
func Foundry() *FoundryMetrics {
	foundryOnce.Do(func() {
		foundryRegistry = &FoundryMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "curvefoundry",
				Name:      "transactions_total",
				Help:      "Applied transactions segmented by type and outcome.",
			}, []string{"type", "outcome"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "curvefoundry",
				Name:      "rejections_total",
				Help:      "Rejected transactions segmented by error kind.",
			}, []string{"kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "curvefoundry",
				Name:      "apply_duration_seconds",
				Help:      "Time spent executing a transaction against state.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"type"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "curvefoundry",
				Name:      "events_total",
				Help:      "Committed events segmented by type.",
			}, []string{"type"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "curvefoundry",
				Name:      "block_height",
				Help:      "Height of the last sealed block.",
			}),
		}
		prometheus.MustRegister(
			foundryRegistry.transactions,
			foundryRegistry.rejections,
			foundryRegistry.latency,
			foundryRegistry.events,
			foundryRegistry.height,
		)
	})
	return foundryRegistry
}

// ObserveTransaction records the outcome of one applied transaction. An empty
// kind marks success.
func (m *FoundryMetrics) ObserveTransaction(txType, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if txType == "" {
		txType = "unknown"
	}
	outcome := "success"
	if kind != "" {
		outcome = "failure"
		m.rejections.WithLabelValues(kind).Inc()
	}
	m.transactions.WithLabelValues(txType, outcome).Inc()
	m.latency.WithLabelValues(txType).Observe(elapsed.Seconds())
}

// ObserveEvent counts a committed event.
func (m *FoundryMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// SetHeight records the height of the last sealed block.
func (m *FoundryMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}
