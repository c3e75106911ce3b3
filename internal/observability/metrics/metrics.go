package metrics

import "github.com/prometheus/client_golang/prometheus"

// TrackerMetrics exposes counters/histograms for the reminder and
// messaging flows.
type TrackerMetrics struct {
	reminderEvents  *prometheus.CounterVec
	fanoutTotal     *prometheus.CounterVec
	inboundCommands *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
}

func NewTrackerMetrics(reg prometheus.Registerer) *TrackerMetrics {
	m := &TrackerMetrics{
		reminderEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkup",
			Subsystem: "reminder",
			Name:      "events_total",
			Help:      "Reminder events processed by the scheduler",
		}, []string{"status"}),
		fanoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkup",
			Subsystem: "notify",
			Name:      "fanout_total",
			Help:      "Outbound fan-out sends",
		}, []string{"status"}),
		inboundCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkup",
			Subsystem: "commands",
			Name:      "inbound_total",
			Help:      "Inbound WhatsApp commands by parsed intent",
		}, []string{"intent"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkup",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reminderEvents, m.fanoutTotal, m.inboundCommands, m.webhookLatency)
	return m
}

func (m *TrackerMetrics) ObserveReminderEvent(status string) {
	if m == nil {
		return
	}
	m.reminderEvents.WithLabelValues(status).Inc()
}

func (m *TrackerMetrics) ObserveFanOut(sent, failed int) {
	if m == nil {
		return
	}
	m.fanoutTotal.WithLabelValues("sent").Add(float64(sent))
	m.fanoutTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *TrackerMetrics) ObserveInboundCommand(intent string) {
	if m == nil {
		return
	}
	m.inboundCommands.WithLabelValues(intent).Inc()
}

func (m *TrackerMetrics) ObserveWebhookLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}
