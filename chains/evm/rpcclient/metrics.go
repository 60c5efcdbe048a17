package rpcclient

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// newMetrics creates the RPC collectors and registers them with reg. When
// another client already registered them, the existing collectors are
// shared. A nil registerer keeps the collectors unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dex",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "JSON-RPC requests by chain, method and outcome",
		}, []string{"chain", "method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dex",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC round-trip latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain", "method"}),
	}
	if reg == nil {
		return m
	}

	m.requests = register(reg, m.requests).(*prometheus.CounterVec)
	m.duration = register(reg, m.duration).(*prometheus.HistogramVec)
	return m
}

func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector
		}
		panic(err)
	}
	return c
}
