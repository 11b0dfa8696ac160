package metrics

import (
	"series-canon/src/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelSource = "source"
	LabelReason = "reason"
	LabelAction = "action"
)

// rowsRead counts raw rows handed to the normalizer
var rowsRead = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "series_canon",
	Name:      "rows_read_total",
	Help:      "Total number of raw rows read from extracts",
}, []string{LabelSource})

// rowsDropped counts rows dropped before the merge, by reason
var rowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "series_canon",
	Name:      "rows_dropped_total",
	Help:      "Total number of rows dropped as malformed, misaligned or invalid",
}, []string{LabelSource, LabelReason})

// mergeActions counts merge classifications
var mergeActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "series_canon",
	Name:      "merge_actions_total",
	Help:      "Total number of canonical keys by merge action",
}, []string{LabelSource, LabelAction})

var mergeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "series_canon",
	Name:      "merge_conflicts_total",
	Help:      "Total number of keys seen with differing values in one batch",
}, []string{LabelSource})

var partitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "series_canon",
	Name:      "partition_errors_total",
	Help:      "Total number of daily partitions that failed to aggregate",
}, []string{LabelSource})

var runsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "series_canon",
	Name:      "runs_failed_total",
	Help:      "Total number of source runs aborted by a source-wide error",
}, []string{LabelSource})

// runDuration is used to indicate the wall time of one source run
var runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "series_canon",
	Name:      "run_duration_seconds",
	Help:      "Duration of one extract run",
	Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
}, []string{LabelSource})

// lastCoverage is the coverage percentage of the latest aggregate per source
var lastCoverage = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "series_canon",
	Name:      "last_coverage_pct",
	Help:      "Coverage percentage of the most recent day aggregated per source and metric",
}, []string{LabelSource, "metric"})

// -----------------------------------------------------------------------------

// ObserveRun mirrors a run report into the exported counters.
func ObserveRun(r models.MRunReport) {
	src := r.Source
	if r.Error != "" {
		runsFailed.WithLabelValues(src).Inc()
	}

	rowsRead.WithLabelValues(src).Add(float64(r.RowsRead))
	for reason, n := range r.Malformed {
		rowsDropped.WithLabelValues(src, reason).Add(float64(n))
	}
	if r.AlignmentViolations > 0 {
		rowsDropped.WithLabelValues(src, "alignment_violation").Add(float64(r.AlignmentViolations))
	}
	for reason, n := range r.Rejected {
		rowsDropped.WithLabelValues(src, reason).Add(float64(n))
	}

	mergeActions.WithLabelValues(src, "insert").Add(float64(r.Inserted))
	mergeActions.WithLabelValues(src, "overwrite").Add(float64(r.Overwritten))
	mergeActions.WithLabelValues(src, "no_op").Add(float64(r.Unchanged))
	mergeConflicts.WithLabelValues(src).Add(float64(r.MergeConflicts))
	partitionErrors.WithLabelValues(src).Add(float64(len(r.PartitionErrors)))

	runDuration.WithLabelValues(src).Observe(r.DurationSeconds)

	latest := make(map[string]models.MDailyAggregate)
	for _, a := range r.Aggregates {
		if cur, ok := latest[a.Metric]; !ok || a.Date > cur.Date {
			latest[a.Metric] = a
		}
	}
	for metric, a := range latest {
		lastCoverage.WithLabelValues(src, metric).Set(a.CoveragePct)
	}
}
