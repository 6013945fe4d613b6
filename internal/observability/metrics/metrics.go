package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the dialogue engine
// and its transports. A nil receiver is safe everywhere, so wiring metrics
// stays optional.
type ConversationMetrics struct {
	turnsTotal     *prometheus.CounterVec
	transfersTotal *prometheus.CounterVec
	bookingsTotal  *prometheus.CounterVec
	turnLatency    *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "dialog",
			Name:      "turns_total",
			Help:      "Conversation turns by step and outcome",
		}, []string{"step", "outcome"}),
		transfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "dialog",
			Name:      "transfers_total",
			Help:      "Calls handed to a human, by reason",
		}, []string{"reason"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "dialog",
			Name:      "bookings_total",
			Help:      "Appointments booked through the dialogue, by status",
		}, []string{"status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Subsystem: "dialog",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one webhook turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.transfersTotal, m.bookingsTotal, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(step, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(step, outcome).Inc()
}

func (m *ConversationMetrics) ObserveTransfer(reason string) {
	if m == nil {
		return
	}
	m.transfersTotal.WithLabelValues(reason).Inc()
}

func (m *ConversationMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveTurnLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(channel).Observe(seconds)
}
