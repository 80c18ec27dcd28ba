package replicate

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type clientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	m := &clientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "replicate",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by operation, method and status code.",
		}, []string{"op", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "replicate",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	m.requests = register(reg, m.requests)
	m.duration = register(reg, m.duration)
	return m
}

// register returns the collector already registered under c's name when
// another Client registered it first.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// observe is a no-op on a nil receiver so the client works without metrics.
func (m *clientMetrics) observe(op, method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, method, code).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}
