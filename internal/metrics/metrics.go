package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels evaluations that produced a report.
	OutcomeSuccess = "success"
	// OutcomeError labels requests rejected before evaluation (undecodable snapshot).
	OutcomeError = "error"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpdiag",
			Name:      "evaluations_total",
			Help:      "Total number of snapshot evaluations handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	evaluationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wpdiag",
			Name:      "evaluation_seconds",
			Help:      "Snapshot evaluation latency in seconds, including fact collection.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	invalidRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpdiag",
			Name:      "invalid_records_total",
			Help:      "Input records skipped as invalid, partitioned by report section.",
		},
		[]string{"section"},
	)

	collectionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpdiag",
			Name:      "collection_failures_total",
			Help:      "Fact collection failures, partitioned by fact.",
		},
		[]string{"fact"},
	)
)

// Register attaches wpdiag collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		evaluationsTotal,
		evaluationDurationSeconds,
		invalidRecordsTotal,
		collectionFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvaluation records an evaluation duration and outcome label.
func ObserveEvaluation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	evaluationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	evaluationDurationSeconds.Observe(duration.Seconds())
}

// ObserveInvalidRecord counts one skipped record for section.
func ObserveInvalidRecord(section string) {
	invalidRecordsTotal.WithLabelValues(section).Inc()
}

// ObserveCollectionFailure counts one failed fact collection.
func ObserveCollectionFailure(fact string) {
	collectionFailuresTotal.WithLabelValues(fact).Inc()
}
