package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mailchain/native/mailer"
	"mailchain/native/mailservice"
)

type eventMetrics struct {
	shares  *prometheus.CounterVec
	payouts *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking fee accrual and payouts.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			shares: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mailchain",
				Subsystem: "fees",
				Name:      "shares_recorded_total",
				Help:      "Base units of priority fees recorded, segmented by share.",
			}, []string{"share"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mailchain",
				Subsystem: "fees",
				Name:      "payouts_total",
				Help:      "Base units released from program custody or reassigned, segmented by kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(eventRegistry.shares, eventRegistry.payouts)
	})
	return eventRegistry
}

// Record inspects a committed fee event and updates the share and payout counters.
func (m *eventMetrics) Record(eventType string, attrs map[string]string) {
	if m == nil {
		return
	}
	switch eventType {
	case mailer.EventTypeSharesRecorded:
		m.shares.WithLabelValues("recipient").Add(amountAttr(attrs, "recipientAmount"))
		m.shares.WithLabelValues("owner").Add(amountAttr(attrs, "ownerAmount"))
	case mailer.EventTypeRecipientClaimed:
		m.payouts.WithLabelValues("recipient_claim").Add(amountAttr(attrs, "amount"))
	case mailer.EventTypeOwnerClaimed:
		m.payouts.WithLabelValues("owner_claim").Add(amountAttr(attrs, "amount"))
	case mailer.EventTypeSharesExpired:
		m.payouts.WithLabelValues("expired_sweep").Add(amountAttr(attrs, "amount"))
	case mailservice.EventTypeFeesWithdrawn:
		m.payouts.WithLabelValues("service_withdrawal").Add(amountAttr(attrs, "amount"))
	}
}

func amountAttr(attrs map[string]string, key string) float64 {
	amount, err := strconv.ParseUint(attrs[key], 10, 64)
	if err != nil {
		return 0
	}
	return float64(amount)
}
