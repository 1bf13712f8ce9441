package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	// Intake metrics
	EventsAccepted   *prometheus.CounterVec
	EventsSuppressed *prometheus.CounterVec
	EventsRejected   prometheus.Counter

	// Delivery metrics
	DeliveriesSucceeded *prometheus.CounterVec
	DeliveriesFailed    *prometheus.CounterVec
	DeliveriesAbandoned *prometheus.CounterVec
	DeliveryLatency     prometheus.Histogram
	QueueSize           prometheus.Gauge

	// Collaborator metrics
	SnapshotRequests  *prometheus.CounterVec
	TrialTokensIssued prometheus.Counter
	TrialTokensFailed prometheus.Counter
	SinkRequests      *prometheus.CounterVec
}

// NewMetrics creates and registers all pipeline metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		EventsAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_accepted_total",
			Help:      "Total number of events accepted at intake",
		}, []string{"event_type"}),
		EventsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_suppressed_total",
			Help:      "Total number of events suppressed as duplicates",
		}, []string{"event_type"}),
		EventsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Total number of events rejected by validation",
		}),
		DeliveriesSucceeded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_succeeded_total",
			Help:      "Total number of events delivered to the sink",
		}, []string{"event_type"}),
		DeliveriesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_failed_total",
			Help:      "Total number of failed delivery attempts",
		}, []string{"event_type"}),
		DeliveriesAbandoned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_abandoned_total",
			Help:      "Total number of events abandoned after exhausting retries",
		}, []string{"event_type"}),
		DeliveryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent on a single delivery attempt",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Current number of events in flight or awaiting retry",
		}),
		SnapshotRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_requests_total",
			Help:      "Total number of user snapshot fetches",
		}, []string{"status"}),
		TrialTokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_tokens_issued_total",
			Help:      "Total number of trial tokens issued",
		}),
		TrialTokensFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_tokens_failed_total",
			Help:      "Total number of failed trial token requests",
		}),
		SinkRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_requests_total",
			Help:      "Total number of sink POSTs by outcome",
		}, []string{"status"}),
	}
}

// NewTestMetrics creates metrics on a private registry, for use in tests
// where promauto's default-registry registration would collide.
func NewTestMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		EventsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_accepted_total", Help: "accepted",
		}, []string{"event_type"}),
		EventsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_suppressed_total", Help: "suppressed",
		}, []string{"event_type"}),
		EventsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_rejected_total", Help: "rejected",
		}),
		DeliveriesSucceeded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_succeeded_total", Help: "succeeded",
		}, []string{"event_type"}),
		DeliveriesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_failed_total", Help: "failed",
		}, []string{"event_type"}),
		DeliveriesAbandoned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_abandoned_total", Help: "abandoned",
		}, []string{"event_type"}),
		DeliveryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "delivery_duration_seconds", Help: "latency",
		}),
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_size", Help: "queue size",
		}),
		SnapshotRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshot_requests_total", Help: "snapshots",
		}, []string{"status"}),
		TrialTokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "trial_tokens_issued_total", Help: "tokens",
		}),
		TrialTokensFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "trial_tokens_failed_total", Help: "token failures",
		}),
		SinkRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sink_requests_total", Help: "sink posts",
		}, []string{"status"}),
	}
}
