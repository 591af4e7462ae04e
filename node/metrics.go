package node

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus collectors for a ledger node.
// newMetrics registers them on the registry it is given rather than the
// default registry, so a node can be constructed more than once in
// tests without double-registering.
type metrics struct {
	transactionsAdmitted prometheus.Counter
	transactionsRejected *prometheus.CounterVec
	admissionQueueDepth  prometheus.Gauge
	admissionLatency     prometheus.Histogram
}

func newMetrics(registry *prometheus.Registry) *metrics {
	factory := promauto.With(registry)
	return &metrics{
		transactionsAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_transactions_admitted_total",
			Help: "Total number of transactions successfully admitted to the ledger.",
		}),
		transactionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transactions_rejected_total",
			Help: "Total number of transactions rejected by the engine, labeled by error kind.",
		}, []string{"kind"}),
		admissionQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_admission_queue_depth",
			Help: "Current number of items waiting in the admission queue.",
		}),
		admissionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_admission_latency_seconds",
			Help:    "Time spent processing one admission-queue item.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
