package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_outcomes_total",
			Help: "Processor webhooks handled, by outcome",
		},
		[]string{"outcome"},
	)

	Publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_publishes_total",
			Help: "Messages published to the bus, by subject family and result",
		},
		[]string{"family", "result"},
	)

	FanOutEnvelopes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_envelopes_total",
			Help: "Notification envelopes fanned out to producers, by type and result",
		},
		[]string{"type", "result"},
	)

	ReceiptLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receipt_lookup_duration_seconds",
			Help:    "Duration of receipt lookups against the payment processor",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// Register registers all collectors with reg. Passing a fresh registry keeps
// tests independent of the global one.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		WebhookOutcomes,
		Publishes,
		FanOutEnvelopes,
		ReceiptLookupDuration,
	)
}
