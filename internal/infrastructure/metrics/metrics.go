package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics covers the fulfillment worker pool.
type PipelineMetrics struct {
	MessagesConsumedTotal 	 prometheus.CounterVec
	MessagesAckedTotal 		 prometheus.CounterVec
	MessagesRequeuedTotal 	 prometheus.CounterVec
	MessagesDeadLetteredTotal prometheus.CounterVec
	LeaseConflictsTotal 	 prometheus.CounterVec

	OrdersCompletedTotal prometheus.Counter
	OrdersFailedTotal 	 prometheus.Counter

	ProcessingDuration prometheus.HistogramVec
	LeasesInFlight 	   prometheus.Gauge
}

func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		MessagesConsumedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_messages_consumed_total",
				Help: "Deliveries pulled from the broker",
			},
			[]string{"queue"},
		),

		MessagesAckedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_messages_acked_total",
				Help: "Deliveries acknowledged and removed from the queue",
			},
			[]string{"queue"},
		),

		MessagesRequeuedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_messages_requeued_total",
				Help: "Deliveries returned to the queue for another attempt",
			},
			[]string{"queue", "reason"},
		),

		MessagesDeadLetteredTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_messages_dead_lettered_total",
				Help: "Deliveries parked on the dead-letter queue",
			},
			[]string{"queue"},
		),

		LeaseConflictsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_lease_conflicts_total",
				Help: "Acquire attempts that lost to an in-flight lease",
			},
			[]string{"queue"},
		),

		OrdersCompletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fulfillment_orders_completed_total",
				Help: "Orders that reached COMPLETED",
			},
		),

		OrdersFailedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fulfillment_orders_failed_total",
				Help: "Orders that reached FAILED",
			},
		),

		ProcessingDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulfillment_processing_duration_seconds",
				Help:    "Time spent handling one delivery under a lease",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"queue"},
		),

		LeasesInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fulfillment_leases_in_flight",
				Help: "Currently held processing leases",
			},
		),
	}
}

func (m *PipelineMetrics) RecordConsumed(queue string) {
	m.MessagesConsumedTotal.WithLabelValues(queue).Inc()
}

func (m *PipelineMetrics) RecordAcked(queue string) {
	m.MessagesAckedTotal.WithLabelValues(queue).Inc()
}

func (m *PipelineMetrics) RecordRequeued(queue, reason string) {
	m.MessagesRequeuedTotal.WithLabelValues(queue, reason).Inc()
}

func (m *PipelineMetrics) RecordDeadLettered(queue string) {
	m.MessagesDeadLetteredTotal.WithLabelValues(queue).Inc()
}

func (m *PipelineMetrics) RecordLeaseConflict(queue string) {
	m.LeaseConflictsTotal.WithLabelValues(queue).Inc()
}

func (m *PipelineMetrics) RecordOrderCompleted() {
	m.OrdersCompletedTotal.Inc()
}

func (m *PipelineMetrics) RecordOrderFailed() {
	m.OrdersFailedTotal.Inc()
}

func (m *PipelineMetrics) RecordProcessingDuration(queue string, d time.Duration) {
	m.ProcessingDuration.WithLabelValues(queue).Observe(d.Seconds())
}

func (m *PipelineMetrics) SetLeasesInFlight(n int) {
	m.LeasesInFlight.Set(float64(n))
}
