// Package metrics records pipeline counters on a private Prometheus registry
// and exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/popstats-cli/internal/dataset"
	"github.com/KaramelBytes/popstats-cli/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "popstats"

// Outcome labels for the runs counter.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Recorder holds the collectors for one process.
type Recorder struct {
	registry *prometheus.Registry

	Runs       *prometheus.CounterVec
	Records    prometheus.Counter
	Dropped    *prometheus.CounterVec
	Regions    prometheus.Counter
	Degenerate prometheus.Counter
	Duration   prometheus.Histogram
}

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		Records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Records that survived cleaning.",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped during cleaning by reason.",
		}, []string{"reason"}),
		Regions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_computed_total",
			Help:      "Regions with computed statistics.",
		}),
		Degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_degenerate_total",
			Help:      "Regions skipped for having fewer than two members.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent computing statistics for one dataset.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
	r.registry.MustRegister(r.Runs, r.Records, r.Dropped, r.Regions, r.Degenerate, r.Duration)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveLoad records the outcome of loading and cleaning a dataset.
func (r *Recorder) ObserveLoad(t *dataset.Table) {
	r.Records.Add(float64(len(t.Records)))
	for _, reason := range t.DropReasons() {
		r.Dropped.WithLabelValues(string(reason)).Add(float64(t.Dropped[reason]))
	}
}

// ObserveResult records a finished computation. The run outcome is recorded
// separately with ObserveRun or ObserveFailure.
func (r *Recorder) ObserveResult(res *stats.Result, elapsed time.Duration) {
	r.Duration.Observe(elapsed.Seconds())
	r.Regions.Add(float64(len(res.Regions)))
	r.Degenerate.Add(float64(len(res.Failures)))
}

// ObserveRun counts a run that produced a report: degraded when any region
// failed, ok otherwise.
func (r *Recorder) ObserveRun(res *stats.Result) {
	if len(res.Failures) > 0 {
		r.Runs.WithLabelValues(OutcomeDegraded).Inc()
		return
	}
	r.Runs.WithLabelValues(OutcomeOK).Inc()
}

// ObserveFailure records a run that failed, either while loading or under
// strict mode.
func (r *Recorder) ObserveFailure() {
	r.Runs.WithLabelValues(OutcomeFailed).Inc()
}

// WriteTextfile writes the registry to path in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
