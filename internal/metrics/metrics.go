// ABOUTME: Prometheus counters for the reporting agent
// ABOUTME: Tracks fixes, store writes, and identifier draws

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the agent's counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fixes  *prometheus.CounterVec
	writes *prometheus.CounterVec
	draws  *prometheus.CounterVec
}

// New registers beacon's counters with registerer (the default registry when nil).
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	fixes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_fixes_total",
		Help: "Location fixes delivered to the reporting loop, by outcome.",
	}, []string{"result"})
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_store_ops_total",
		Help: "Document store operations, by operation and outcome.",
	}, []string{"op", "result"})
	draws := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_id_draws_total",
		Help: "Tracker identifier candidates drawn, by outcome.",
	}, []string{"result"})

	return &Metrics{
		fixes:  registerCounterVec(registerer, fixes),
		writes: registerCounterVec(registerer, writes),
		draws:  registerCounterVec(registerer, draws),
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves a specific gatherer.
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Fix records a delivered fix: "written", "stale", "invalid" or "empty".
func (m *Metrics) Fix(result string) {
	if m == nil || m.fixes == nil {
		return
	}
	m.fixes.WithLabelValues(result).Inc()
}

// StoreOp records a store operation ("merge", "delete", "get") and whether it failed.
func (m *Metrics) StoreOp(op string, err error) {
	if m == nil || m.writes == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.WithLabelValues(op, result).Inc()
}

// Draw records an identifier draw: "accepted", "collision" or "read_error".
func (m *Metrics) Draw(result string) {
	if m == nil || m.draws == nil {
		return
	}
	m.draws.WithLabelValues(result).Inc()
}

func registerCounterVec(registerer prometheus.Registerer, counter *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return counter
}
