package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service counters. A nil *Metrics is valid and records
// nothing, so tests can pass nil without wiring a registry.
type Metrics struct {
	operations   *prometheus.CounterVec
	storeLoads   prometheus.Counter
	storeRefresh prometheus.Counter
	storeCommits prometheus.Counter
}

// New registers the counters against the supplied registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildtrack",
			Name:      "operations_total",
			Help:      "Total service operations by name and outcome",
		}, []string{"operation", "outcome"}),
		storeLoads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "buildtrack",
			Name:      "store_loads_total",
			Help:      "Total snapshot loads served from the cache or disk",
		}),
		storeRefresh: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "buildtrack",
			Name:      "store_refreshes_total",
			Help:      "Total snapshot loads that re-read the durable artifact",
		}),
		storeCommits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "buildtrack",
			Name:      "store_commits_total",
			Help:      "Total whole-snapshot commits to the durable artifact",
		}),
	}
}

// Operation records one service operation outcome.
func (m *Metrics) Operation(name string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}

// StoreLoad records a snapshot load; refreshed marks a disk re-read.
func (m *Metrics) StoreLoad(refreshed bool) {
	if m == nil {
		return
	}
	m.storeLoads.Inc()
	if refreshed {
		m.storeRefresh.Inc()
	}
}

// StoreCommit records a whole-snapshot commit.
func (m *Metrics) StoreCommit() {
	if m == nil {
		return
	}
	m.storeCommits.Inc()
}
