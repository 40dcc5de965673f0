package metrics

import "github.com/prometheus/client_golang/prometheus"

// AvailabilityMetrics exposes counters/histograms for availability queries.
type AvailabilityMetrics struct {
	queriesTotal  *prometheus.CounterVec
	queryLatency  *prometheus.HistogramVec
	slotsReturned prometheus.Histogram
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "queries_total",
			Help:      "Total availability queries",
		}, []string{"outcome"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "query_latency_seconds",
			Help:      "Latency of slot generation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Slots returned per query",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.queriesTotal, m.queryLatency, m.slotsReturned)
	return m
}

func (m *AvailabilityMetrics) ObserveQuery(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome).Inc()
	m.queryLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *AvailabilityMetrics) ObserveSlots(count int) {
	if m == nil {
		return
	}
	m.slotsReturned.Observe(float64(count))
}

// ReservationMetrics exposes counters for the reservation gate.
type ReservationMetrics struct {
	attemptsTotal *prometheus.CounterVec
	txRetries     prometheus.Counter
	txLatency     *prometheus.HistogramVec
}

func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	m := &ReservationMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "reservations",
			Name:      "attempts_total",
			Help:      "Total reserve/reschedule attempts",
		}, []string{"op", "outcome"}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "reservations",
			Name:      "tx_retries_total",
			Help:      "Transactions retried after a serialization or lock failure",
		}),
		txLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "reservations",
			Name:      "tx_latency_seconds",
			Help:      "Latency of reservation transactions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.txRetries, m.txLatency)
	return m
}

func (m *ReservationMetrics) ObserveAttempt(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(op, outcome).Inc()
	m.txLatency.WithLabelValues(op).Observe(seconds)
}

func (m *ReservationMetrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}
