package runmetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exports pair and conflict counters through a Prometheus
// registerer.
type PrometheusRecorder struct {
	pairSeconds prometheus.Histogram
	pairsTotal  *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
}

// NewPrometheusRecorder registers the run metrics on the given registerer.
// Pass prometheus.DefaultRegisterer outside of tests.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		pairSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medsynth",
			Subsystem: "generator",
			Name:      "pair_seconds",
			Help:      "Time spent producing one patient/study pair",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		pairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medsynth",
			Subsystem: "generator",
			Name:      "pairs_total",
			Help:      "Generated patient/study pairs per period",
		}, []string{"period"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medsynth",
			Subsystem: "generator",
			Name:      "constraint_conflicts_total",
			Help:      "Constraint conflicts that terminated a run",
		}, []string{"variable"}),
	}
}

// RecordPair notes one generated pair in the given period.
func (r *PrometheusRecorder) RecordPair(period int, elapsed time.Duration) {
	r.pairSeconds.Observe(elapsed.Seconds())
	r.pairsTotal.WithLabelValues(strconv.Itoa(period)).Inc()
}

// RecordConflict notes a constraint conflict on the named variable.
func (r *PrometheusRecorder) RecordConflict(variable string) {
	r.conflicts.WithLabelValues(variable).Inc()
}
