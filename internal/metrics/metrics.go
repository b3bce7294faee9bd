package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	defaultCollector *Collector
	once             sync.Once
)

// GetCollector returns the singleton metrics collector.
func GetCollector(namespace string) *Collector {
	once.Do(func() {
		defaultCollector = newCollector(namespace)
	})
	return defaultCollector
}

type Collector struct {
	RequestDuration *prometheus.HistogramVec
	RequestCounter  *prometheus.CounterVec
	SinkErrors      *prometheus.CounterVec
	ActiveRequests  prometheus.Gauge
}

func newCollector(namespace string) *Collector {
	return &Collector{
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Upstream request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "status"},
		),
		RequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"method", "status"},
		),
		SinkErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_errors_total",
				Help:      "Total number of persistence failures per sink",
			},
			[]string{"sink"},
		),
		ActiveRequests: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_requests",
				Help:      "Number of in-flight requests",
			},
		),
	}
}

func (c *Collector) ObserveRequest(method, status string, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "status": status}
	c.RequestDuration.With(labels).Observe(duration.Seconds())
	c.RequestCounter.With(labels).Inc()
}

func (c *Collector) IncSinkError(sink string) {
	c.SinkErrors.With(prometheus.Labels{"sink": sink}).Inc()
}

func (c *Collector) IncActiveRequests() {
	c.ActiveRequests.Inc()
}

func (c *Collector) DecActiveRequests() {
	c.ActiveRequests.Dec()
}
