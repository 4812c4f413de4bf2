package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking-support flows.
type BookingMetrics struct {
	availabilityTotal *prometheus.CounterVec
	emailsTotal       *prometheus.CounterVec
	intentsTotal      *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bundlebooth",
			Subsystem: "availability",
			Name:      "requests_total",
			Help:      "Availability lookups by outcome",
		}, []string{"result"}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bundlebooth",
			Subsystem: "email",
			Name:      "sent_total",
			Help:      "Confirmation emails by provider and status",
		}, []string{"provider", "status"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bundlebooth",
			Subsystem: "payments",
			Name:      "intents_total",
			Help:      "Payment intents created by status",
		}, []string{"status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bundlebooth",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of calls to calendar, email and payment providers",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collaborator"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.availabilityTotal, m.emailsTotal, m.intentsTotal, m.upstreamLatency)
	return m
}

func (m *BookingMetrics) ObserveAvailability(result string) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveEmail(provider string, err error) {
	if m == nil {
		return
	}
	m.emailsTotal.WithLabelValues(provider, statusLabel(err)).Inc()
}

func (m *BookingMetrics) ObservePaymentIntent(err error) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func (m *BookingMetrics) ObserveUpstreamLatency(collaborator string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(collaborator).Observe(seconds)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
