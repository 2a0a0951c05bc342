package relay

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "registry"
	subsystem = "relay"
)

// Metrics counts events passed through Listen. Nil Metrics counts nothing.
type Metrics struct {
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewMetrics creates relay counters and registers them in reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_processed_total",
			Help:      "Number of registry events passed to the handler",
		}, []string{"event"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_failed_total",
			Help:      "Number of registry events which could not be decoded or handled",
		}, []string{"event"}),
	}

	reg.MustRegister(m.processed, m.failed)

	return m
}

func (m *Metrics) incProcessed(event string) {
	if m != nil {
		m.processed.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) incFailed(event string) {
	if m != nil {
		m.failed.WithLabelValues(event).Inc()
	}
}
