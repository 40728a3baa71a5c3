package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type runtimeMetrics struct {
	transactions  *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	events        *prometheus.CounterVec
	transferTotal *prometheus.CounterVec
}

var (
	runtimeMetricsOnce sync.Once
	runtimeRegistry    *runtimeMetrics
)

// Runtime returns the lazily-initialised registry tracking applied transactions.
func Runtime() *runtimeMetrics {
	runtimeMetricsOnce.Do(func() {
		runtimeRegistry = &runtimeMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mailchain",
				Subsystem: "runtime",
				Name:      "transactions_total",
				Help:      "Applied transactions segmented by program, method and outcome.",
			}, []string{"program", "method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "mailchain",
				Subsystem: "runtime",
				Name:      "apply_duration_seconds",
				Help:      "Latency distribution for transaction application.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"program", "method"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mailchain",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Committed events segmented by type.",
			}, []string{"type"}),
			transferTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mailchain",
				Subsystem: "events",
				Name:      "transfer_amount_total",
				Help:      "Sum of token base units moved by committed transfers, segmented by mint.",
			}, []string{"mint"}),
		}
		prometheus.MustRegister(
			runtimeRegistry.transactions,
			runtimeRegistry.latency,
			runtimeRegistry.events,
			runtimeRegistry.transferTotal,
		)
	})
	return runtimeRegistry
}

// ObserveTransaction records the outcome and latency of an applied transaction.
func (m *runtimeMetrics) ObserveTransaction(program, method string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if program == "" {
		program = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.transactions.WithLabelValues(program, method, outcome).Inc()
	m.latency.WithLabelValues(program, method).Observe(duration.Seconds())
}

// RecordEvent counts a committed event. Fee events feed the Events registry and
// token transfers add their amount to the per-mint volume counter.
func (m *runtimeMetrics) RecordEvent(eventType string, attrs map[string]string) {
	if m == nil || eventType == "" {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
	Events().Record(eventType, attrs)
	if eventType != "token.transfer" {
		return
	}
	amount, err := strconv.ParseUint(attrs["amount"], 10, 64)
	if err != nil || amount == 0 {
		return
	}
	mint := attrs["mint"]
	if mint == "" {
		mint = "unknown"
	}
	m.transferTotal.WithLabelValues(mint).Add(float64(amount))
}
