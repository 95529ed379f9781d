package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DescriptionsMinted counts batch descriptions emitted by a leader minter.
	DescriptionsMinted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistsink_descriptions_minted_total",
			Help: "Total number of batch descriptions minted, by sink id",
		},
		[]string{"sink_id"},
	)

	// BatchesWritten counts hollow batch artifacts uploaded by writers.
	BatchesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistsink_batches_written_total",
			Help: "Total number of batch artifacts uploaded, by sink id and worker index",
		},
		[]string{"sink_id", "worker"},
	)

	// CommitsTotal counts compare-and-append attempts by outcome.
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistsink_commits_total",
			Help: "Total number of compare-and-append attempts, by sink id and outcome",
		},
		[]string{"sink_id", "outcome"}, // outcome: committed, conflict, indeterminate
	)

	// SharedFrontier reports each sink's current shared write frontier, as a
	// raw timestamp value. An empty frontier is reported as -1 since the
	// gauge type has no "closed" bit of its own.
	SharedFrontier = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "persistsink_shared_frontier",
			Help: "Current shared write frontier timestamp, by sink id (-1 means empty/shut down)",
		},
		[]string{"sink_id"},
	)

	// CorrectionBufferLen reports the writer's live correction buffer size.
	CorrectionBufferLen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "persistsink_correction_buffer_entries",
			Help: "Number of live entries in a writer's correction buffer, by sink id and worker index",
		},
		[]string{"sink_id", "worker"},
	)

	// CommitDuration times every compare-and-append call, whatever its outcome.
	CommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "persistsink_commit_duration_seconds",
			Help:    "Time taken for a compare-and-append call to return, by sink id",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink_id"},
	)
)

func init() {
	prometheus.MustRegister(DescriptionsMinted)
	prometheus.MustRegister(BatchesWritten)
	prometheus.MustRegister(CommitsTotal)
	prometheus.MustRegister(SharedFrontier)
	prometheus.MustRegister(CorrectionBufferLen)
	prometheus.MustRegister(CommitDuration)
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
