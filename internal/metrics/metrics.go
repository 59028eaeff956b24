package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - все коллекторы приложения, зарегистрированные в одном registry
type Metrics struct {
	Registry *prometheus.Registry

	RelayMessages      *prometheus.CounterVec // exchange, routing_key, outcome
	ConsumedMessages   *prometheus.CounterVec // queue, routing_key, outcome
	Reconciliations    *prometheus.CounterVec // event, outcome
	NotificationsSent  *prometheus.CounterVec // type, outcome
	WSConnections      prometheus.Gauge
	CleanupAffected    *prometheus.CounterVec // action
	BrokerAvailable    prometheus.Gauge
	PublishDuration    *prometheus.HistogramVec
	EmailsSent         *prometheus.CounterVec // template, outcome
	SessionsTerminated prometheus.Counter
	RefreshTokenReuses prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		RelayMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Outbound broker messages by outcome (published, failed, dropped)",
		}, []string{"exchange", "routing_key", "outcome"}),
		ConsumedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consumer_messages_total",
			Help: "Inbound broker messages by outcome (acked, nacked, unroutable)",
		}, []string{"queue", "routing_key", "outcome"}),
		Reconciliations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_reconciliations_total",
			Help: "Subscription reconciliation use-case runs",
		}, []string{"event", "outcome"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification events by outcome (delivered, stored, disabled, failed)",
		}, []string{"type", "outcome"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Users with a registered websocket connection",
		}),
		CleanupAffected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_cleanup_rows_total",
			Help: "Rows archived or purged by the cleanup job",
		}, []string{"action"}),
		BrokerAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Name: "broker_available",
			Help: "1 if the broker is considered reachable",
		}),
		PublishDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_publish_duration_seconds",
			Help:    "Time spent publishing one message",
			Buckets: prometheus.DefBuckets,
		}, []string{"exchange"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "emails_total",
			Help: "Emails sent from the notification queue",
		}, []string{"template", "outcome"}),
		SessionsTerminated: factory.NewCounter(prometheus.CounterOpts{
			Name: "device_sessions_terminated_total",
			Help: "Device sessions removed by logout, termination or token reuse",
		}),
		RefreshTokenReuses: factory.NewCounter(prometheus.CounterOpts{
			Name: "refresh_token_reuse_total",
			Help: "Refresh tokens presented after rotation",
		}),
	}
}
