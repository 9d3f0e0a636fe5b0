package plan

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SolverMetrics exposes search progress to Prometheus. All fields are safe
// for concurrent use by the branch-and-bound workers.
type SolverMetrics struct {
	NodesExplored    prometheus.Counter
	LPIterations     prometheus.Counter
	IncumbentUpdates prometheus.Counter
	SolveDuration    prometheus.Histogram
	FinalGap         prometheus.Gauge
}

// NewSolverMetrics builds and registers the solver collectors. A nil
// registerer uses the default prometheus registry.
func NewSolverMetrics(reg prometheus.Registerer) *SolverMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &SolverMetrics{
		NodesExplored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prodplan_nodes_explored_total",
			Help: "Branch-and-bound nodes expanded.",
		}),
		LPIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prodplan_lp_iterations_total",
			Help: "Simplex pivots performed across all relaxations.",
		}),
		IncumbentUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prodplan_incumbent_updates_total",
			Help: "Times a strictly better feasible schedule was found.",
		}),
		SolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prodplan_solve_duration_seconds",
			Help:    "Wall-clock duration of complete solve calls.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		FinalGap: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prodplan_final_gap",
			Help: "Optimality gap of the most recent solve (0 when proven optimal).",
		}),
	}
	reg.MustRegister(m.NodesExplored, m.LPIterations, m.IncumbentUpdates, m.SolveDuration, m.FinalGap)
	return m
}
