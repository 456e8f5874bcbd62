// Package metrics holds the Prometheus collectors of the reconciliation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	SyncCycles        *prometheus.CounterVec
	FeedFailures      prometheus.Counter
	IngestedTxns      prometheus.Counter
	FinalizedPayments *prometheus.CounterVec
	SyncDuration      prometheus.Histogram
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hoctuthien",
			Name:      "sync_cycles_total",
			Help:      "Campaign sync cycles by trigger (sweep, force, rematch).",
		}, []string{"trigger"}),
		FeedFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hoctuthien",
			Name:      "feed_failures_total",
			Help:      "Aggregator feed calls that failed or returned an unusable body.",
		}),
		IngestedTxns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hoctuthien",
			Name:      "ingested_transactions_total",
			Help:      "Newly persisted credit transactions.",
		}),
		FinalizedPayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hoctuthien",
			Name:      "finalized_payments_total",
			Help:      "Payment requests settled, by request type.",
		}, []string{"request_type"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hoctuthien",
			Name:      "campaign_sync_seconds",
			Help:      "Duration of one campaign sync cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.SyncCycles, m.FeedFailures, m.IngestedTxns, m.FinalizedPayments, m.SyncDuration)
	return m
}
