package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bucketlist"

// Metrics holds the service collectors and the registry they are registered with
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestDuration *prometheus.HistogramVec
	GraphQLOperations   *prometheus.CounterVec
	MessagesPosted      prometheus.Counter
	MessagesDropped     prometheus.Counter
	ActiveSubscriptions prometheus.Gauge
	PushNotifications   *prometheus.CounterVec
	StoreUp             prometheus.Gauge
}

// New creates the collectors on a fresh registry, including Go runtime and process metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		GraphQLOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "operations_total",
			Help:      "GraphQL operations by type and outcome",
		}, []string{"type", "status"}),
		MessagesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_posted_total",
			Help:      "Messages posted to chats",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped because a subscriber buffer was full",
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "active_subscriptions",
			Help:      "Open messageSent subscriptions",
		}),
		PushNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "notifications_total",
			Help:      "Push notifications by result",
		}, []string{"result"}),
		StoreUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "up",
			Help:      "1 when the last store ping succeeded",
		}),
	}

	m.registry.MustRegister(
		m.HTTPRequestDuration,
		m.GraphQLOperations,
		m.MessagesPosted,
		m.MessagesDropped,
		m.ActiveSubscriptions,
		m.PushNotifications,
		m.StoreUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
