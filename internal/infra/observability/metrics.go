package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
)

// Metrics holds the Prometheus collectors for the bot.
type Metrics struct {
	// Registry owns every collector below. /metrics serves it directly.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	routesTotal     *prometheus.CounterVec
	repliesTotal    *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	sessionsEvicted prometheus.Counter
}

// NewMetrics creates a private registry so repeated calls (tests) never
// collide on collector names.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bot_request_duration_seconds",
				Help:    "Duration of bot operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		routesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_messages_total",
				Help: "Inbound messages by the rule that handled them.",
			},
			[]string{"route"},
		),
		repliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_replies_total",
				Help: "Outbound WhatsApp replies by delivery status.",
			},
			[]string{"status"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		sessionsEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bot_sessions_evicted_total",
				Help: "Sessions dropped after the idle TTL.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrRoute counts one inbound message under the route that handled it.
func (m *Metrics) IncrRoute(route string) {
	m.routesTotal.WithLabelValues(route).Inc()
}

// IncrReply counts an outbound reply; status is "sent" or "failed".
func (m *Metrics) IncrReply(status string) {
	m.repliesTotal.WithLabelValues(status).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrSessionEvicted counts a session removed by the TTL sweep.
func (m *Metrics) IncrSessionEvicted() {
	m.sessionsEvicted.Inc()
}

// RegisterSessionGauge exposes the live session count as a gauge.
func (m *Metrics) RegisterSessionGauge(count func() int) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "bot_active_sessions",
			Help: "Customer sessions currently held in memory.",
		},
		func() float64 { return float64(count()) },
	))
}

// GetBotSnapshot returns the counters in the shape served by
// GET /v1/metrics/bot.
func (m *Metrics) GetBotSnapshot(activeSessions int) *domain.BotMetrics {
	routes := collectCounterVec(m.routesTotal, "route")

	var total int64
	for _, v := range routes {
		total += v
	}

	return &domain.BotMetrics{
		MessagesTotal:    total,
		Routes:           routes,
		RepliesSent:      int64(getCounterValue(m.repliesTotal, "sent")),
		RepliesFailed:    int64(getCounterValue(m.repliesTotal, "failed")),
		AIErrors:         int64(getCounterValue(m.externalErrors, "openai")),
		PromptTokens:     int64(getCounterValue(m.tokensUsed, "prompt")),
		CompletionTokens: int64(getCounterValue(m.tokensUsed, "completion")),
		ActiveSessions:   activeSessions,
	}
}

// getCounterValue extracts the current value of one labelled counter.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// collectCounterVec reads every child of a CounterVec keyed by labelName.
func collectCounterVec(cv *prometheus.CounterVec, labelName string) map[string]int64 {
	out := make(map[string]int64)

	ch := make(chan prometheus.Metric)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil || m.Counter == nil {
			continue
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName {
				out[lp.GetValue()] = int64(m.Counter.GetValue())
			}
		}
	}
	return out
}
