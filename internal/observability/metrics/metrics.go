package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "academy"

// Metrics exposes the counters/histograms of the portal backend. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	chatbotReplies  *prometheus.CounterVec
	bookingOutcomes *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	rateLimited     *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	emailsSent      *prometheus.CounterVec
	leadsRegistered *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chatbotReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatbot",
			Name:      "replies_total",
			Help:      "Chatbot replies by source (intent, booking, llm, fallback)",
		}, []string{"source"}),
		bookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatbot",
			Name:      "booking_outcomes_total",
			Help:      "Booking dialogue outcomes",
		}, []string{"outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chatbot",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM fallback calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter",
		}, []string{"scope"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Stripe webhook events by type and outcome",
		}, []string{"event_type", "outcome"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Outbound emails by kind and status",
		}, []string{"kind", "status"}),
		leadsRegistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "registered_total",
			Help:      "Registered leads by capital segment",
		}, []string{"segment"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.chatbotReplies,
		m.bookingOutcomes,
		m.llmLatency,
		m.rateLimited,
		m.webhookEvents,
		m.emailsSent,
		m.leadsRegistered,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) ObserveChatbotReply(source string) {
	if m == nil {
		return
	}
	m.chatbotReplies.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLLM(provider string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.llmLatency.WithLabelValues(provider, status).Observe(seconds)
}

func (m *Metrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveEmail(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.emailsSent.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) ObserveLead(segment string) {
	if m == nil {
		return
	}
	m.leadsRegistered.WithLabelValues(segment).Inc()
}

func (m *Metrics) ObserveHTTP(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, status).Observe(seconds)
}
