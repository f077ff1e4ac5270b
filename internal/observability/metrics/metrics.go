package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workorbit_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workorbit_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	decisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workorbit_approval_decision_duration_seconds",
		Help:    "Duration of join-request approve/reject transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"decision", "outcome"})

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workorbit_approval_decisions_total",
		Help: "Count of join-request decisions by kind and outcome",
	}, []string{"decision", "outcome"})

	accountLockouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workorbit_account_lockouts_total",
		Help: "Count of accounts locked after repeated login failures",
	})

	notificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workorbit_notifications_published_total",
		Help: "Count of notification events pushed to the outbox by result",
	}, []string{"result"})

	notificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workorbit_notifications_dispatched_total",
		Help: "Count of notification events delivered to subscribers by result",
	}, []string{"result"})

	websocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workorbit_websocket_clients",
		Help: "Number of connected notification feed clients",
	})

	outboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workorbit_notification_outbox_depth",
		Help: "Number of undelivered events waiting on the outbox queue",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveDecision records an approve/reject attempt with its outcome label.
func ObserveDecision(decision, outcome string, duration time.Duration) {
	decisionsTotal.WithLabelValues(decision, outcome).Inc()
	decisionDuration.WithLabelValues(decision, outcome).Observe(duration.Seconds())
}

// ObserveLockout increments the account lockout counter.
func ObserveLockout() {
	accountLockouts.Inc()
}

// ObservePublish records an outbox push attempt.
func ObservePublish(result string) {
	notificationsPublished.WithLabelValues(result).Inc()
}

// ObserveDispatch records a delivery attempt to subscribers.
func ObserveDispatch(result string) {
	notificationsDispatched.WithLabelValues(result).Inc()
}

// SetOutboxDepth records the current outbox queue depth.
func SetOutboxDepth(depth int64) {
	outboxDepth.Set(float64(depth))
}

// ClientConnected increments the websocket client gauge.
func ClientConnected() {
	websocketClients.Inc()
}

// ClientDisconnected decrements the websocket client gauge.
func ClientDisconnected() {
	websocketClients.Dec()
}
