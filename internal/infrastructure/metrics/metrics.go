package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// Linking handshake metrics
	LinkBeginTotal   *prometheus.CounterVec
	LinkVerifyTotal  *prometheus.CounterVec
	PendingLinks     prometheus.Gauge
	PendingEvictions *prometheus.CounterVec

	// Linked account queries
	QueryTotal *prometheus.CounterVec

	// Remote API calls
	RemoteCallDuration *prometheus.HistogramVec
	RemoteCallErrors   *prometheus.CounterVec

	// Kafka metrics
	KafkaMessagesProduced prometheus.Counter
	KafkaProduceErrors    *prometheus.CounterVec

	// User accounts
	AuthTotal *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	GetDefaultMetrics()
}

// NewMetrics creates a new Metrics instance with all counters and gauges
func NewMetrics() *Metrics {
	return &Metrics{
		LinkBeginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgviewer_link_begin_total",
				Help: "Total number of link attempts started, by result",
			},
			[]string{"result"},
		),
		LinkVerifyTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgviewer_link_verify_total",
				Help: "Total number of code submissions, by outcome",
			},
			[]string{"outcome"},
		),
		PendingLinks: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tgviewer_pending_links",
			Help: "Current number of in-flight linking handshakes",
		}),
		PendingEvictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgviewer_pending_link_evictions_total",
				Help: "Total number of pending links disconnected without completing",
			},
			[]string{"reason"},
		),

		QueryTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgviewer_linked_queries_total",
				Help: "Total number of linked account queries, by operation and result",
			},
			[]string{"operation", "result"},
		),

		RemoteCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tgviewer_remote_call_duration_seconds",
				Help:    "Duration of Telegram API calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		RemoteCallErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgviewer_remote_call_errors_total",
				Help: "Total number of failed Telegram API calls",
			},
			[]string{"method"},
		),

		KafkaMessagesProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgviewer_kafka_messages_produced_total",
			Help: "Total number of link events produced to Kafka",
		}),
		KafkaProduceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgviewer_kafka_produce_errors_total",
				Help: "Total number of Kafka produce errors",
			},
			[]string{"event_type"},
		),

		AuthTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgviewer_auth_total",
				Help: "Total number of register and login attempts, by result",
			},
			[]string{"action", "result"},
		),
	}
}

// RecordLinkBegin records the result of a begin call
func (m *Metrics) RecordLinkBegin(result string) {
	m.LinkBeginTotal.WithLabelValues(result).Inc()
}

// RecordLinkVerify records the outcome of a code submission
func (m *Metrics) RecordLinkVerify(outcome string) {
	m.LinkVerifyTotal.WithLabelValues(outcome).Inc()
}

// SetPendingLinks updates the pending link gauge
func (m *Metrics) SetPendingLinks(n int) {
	m.PendingLinks.Set(float64(n))
}

// RecordPendingEviction records pending links dropped by the sweeper or an overwrite
func (m *Metrics) RecordPendingEviction(reason string, n int) {
	if n > 0 {
		m.PendingEvictions.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordQuery records a linked account query
func (m *Metrics) RecordQuery(operation, result string) {
	m.QueryTotal.WithLabelValues(operation, result).Inc()
}

// RecordRemoteCall records a Telegram API call
func (m *Metrics) RecordRemoteCall(method string, seconds float64, err error) {
	m.RemoteCallDuration.WithLabelValues(method).Observe(seconds)
	if err != nil {
		m.RemoteCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordKafkaMessage records a produced Kafka message
func (m *Metrics) RecordKafkaMessage() {
	m.KafkaMessagesProduced.Inc()
}

// RecordKafkaError records a Kafka produce error
func (m *Metrics) RecordKafkaError(eventType string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.KafkaProduceErrors.WithLabelValues(eventType).Inc()
}

// RecordAuth records a register or login attempt
func (m *Metrics) RecordAuth(action, result string) {
	m.AuthTotal.WithLabelValues(action, result).Inc()
}
