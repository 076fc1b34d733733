package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the booking engine.
type Metrics struct {
	// QuotesTotal counts quote requests by outcome.
	QuotesTotal *prometheus.CounterVec

	// ReservationsTotal counts reservation transitions by status.
	ReservationsTotal *prometheus.CounterVec

	// ConflictsTotal counts rejected reservations by conflict reason.
	ConflictsTotal *prometheus.CounterVec

	// QuoteDuration is the time to validate and price a quote.
	QuoteDuration prometheus.Histogram

	// ReserveDuration is the time spent inside the reserve critical section.
	ReserveDuration prometheus.Histogram

	// ActiveReservations is the current number of reserved bookings.
	ActiveReservations prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics for the engine.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		QuotesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quotes_total",
				Help:      "Total number of quote requests",
			},
			[]string{"outcome", "booking_kind"},
		),

		ReservationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reservations_total",
				Help:      "Total number of reservation status transitions",
			},
			[]string{"status"},
		),

		ConflictsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflicts_total",
				Help:      "Total number of reservations rejected with a conflict",
			},
			[]string{"reason"},
		),

		QuoteDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quote_duration_seconds",
				Help:      "Time to validate and price a quote",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
			},
		),

		ReserveDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reserve_duration_seconds",
				Help:      "Time spent reserving inside the item critical section",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),

		ActiveReservations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_reservations",
				Help:      "Current number of reserved bookings",
			},
		),
	}
}

// IncQuote increments the quote counter for an outcome and booking kind.
func (m *Metrics) IncQuote(outcome, kind string) {
	m.QuotesTotal.WithLabelValues(outcome, kind).Inc()
}

// IncReservation increments the transition counter for a status.
func (m *Metrics) IncReservation(status string) {
	m.ReservationsTotal.WithLabelValues(status).Inc()
}

// IncConflict increments the conflict counter for a reason.
func (m *Metrics) IncConflict(reason string) {
	m.ConflictsTotal.WithLabelValues(reason).Inc()
}

// IncActive bumps the live reserved-bookings gauge.
func (m *Metrics) IncActive() {
	m.ActiveReservations.Inc()
}

// DecActive drops the live reserved-bookings gauge.
func (m *Metrics) DecActive() {
	m.ActiveReservations.Dec()
}

// ObserveQuoteDuration records the time taken to produce a quote.
func (m *Metrics) ObserveQuoteDuration(seconds float64) {
	m.QuoteDuration.Observe(seconds)
}

// ObserveReserveDuration records the time taken by a reserve call.
func (m *Metrics) ObserveReserveDuration(seconds float64) {
	m.ReserveDuration.Observe(seconds)
}
