// Package metrics exposes Prometheus collectors for the chat endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the relay's request metrics.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	upstream *prometheus.CounterVec
}

// New registers the collectors with reg. Passing nil registers with the
// default registry, which is what promhttp.Handler serves.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat_relay",
			Name:      "requests_total",
			Help:      "Chat requests by HTTP status code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chat_relay",
			Name:      "request_duration_seconds",
			Help:      "Time spent handling chat requests, upstream call included.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"code"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat_relay",
			Name:      "upstream_failures_total",
			Help:      "Failed completion calls by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(c.requests, c.duration, c.upstream)
	return c
}

func (c *Collector) ObserveRequest(status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	code := strconv.Itoa(status)
	c.requests.WithLabelValues(code).Inc()
	c.duration.WithLabelValues(code).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveUpstreamFailure(reason string) {
	if c == nil {
		return
	}
	c.upstream.WithLabelValues(reason).Inc()
}
