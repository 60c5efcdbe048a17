package evm

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	transactions *prometheus.CounterVec
}

// newMetrics creates the transaction outcome counter. Collectors already
// registered by another chain are shared; a nil registerer leaves the
// counter unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dex",
			Subsystem: "engine",
			Name:      "transactions_total",
			Help:      "Submitted transactions by chain, kind and final status",
		}, []string{"chain", "kind", "status"}),
	}
	if reg == nil {
		return m
	}

	if err := reg.Register(m.transactions); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
		m.transactions = already.ExistingCollector.(*prometheus.CounterVec)
	}
	return m
}

func (m *metrics) observe(chain, kind, status string) {
	m.transactions.WithLabelValues(chain, kind, status).Inc()
}
