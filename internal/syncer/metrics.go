package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes sync engine counters on the prometheus registry
type Metrics struct {
	EventsApplied   *prometheus.CounterVec
	EventsSkipped   prometheus.Counter
	EventsRejected  prometheus.Counter
	LogsFlagged     prometheus.Counter
	BatchFailures   prometheus.Counter
	ChainGaps       prometheus.Counter
	CheckpointBlock prometheus.Gauge
	HeadBlock       prometheus.Gauge
	EngineFailures  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrowsync",
			Name:      "events_applied_total",
			Help:      "Ledger events applied to the replica, by event name",
		}, []string{"event"}),
		EventsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowsync",
			Name:      "events_skipped_total",
			Help:      "Events skipped because their transaction was already applied",
		}),
		EventsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowsync",
			Name:      "events_rejected_total",
			Help:      "Events rejected by replica validation and not retried",
		}),
		LogsFlagged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowsync",
			Name:      "logs_flagged_total",
			Help:      "Raw logs the decoder could not interpret, kept for review",
		}),
		BatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowsync",
			Name:      "batch_failures_total",
			Help:      "Batch attempts that failed and were retried with backoff",
		}),
		ChainGaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowsync",
			Name:      "chain_gaps_total",
			Help:      "Times the live engine fell behind the head by more than one batch and re-entered backfill",
		}),
		CheckpointBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "escrowsync",
			Name:      "checkpoint_block",
			Help:      "Last fully processed ledger block",
		}),
		HeadBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "escrowsync",
			Name:      "head_block",
			Help:      "Last observed ledger head",
		}),
		EngineFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowsync",
			Name:      "engine_failures_total",
			Help:      "Times the engine exhausted its retries and stopped",
		}),
	}
}
