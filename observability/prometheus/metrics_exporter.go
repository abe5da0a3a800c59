package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/taskcoord/go-task-coordinator/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskStartedTotal    *prom.CounterVec
	taskAbortedTotal    *prom.CounterVec
	taskIgnoredTotal    *prom.CounterVec
	seriesOutcomeTotal  *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "taskcoord"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Invocation run time until settlement in seconds.",
		Buckets:   buckets,
	}, []string{"coordinator"})
	startedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_started_total",
		Help:      "Total number of invocations that entered the active slot.",
	}, []string{"coordinator"})
	abortedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_aborted_total",
		Help:      "Total number of cancelled invocations.",
	}, []string{"coordinator", "reason"})
	ignoredVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_ignored_total",
		Help:      "Total number of Run calls dropped by the deferral policy.",
	}, []string{"coordinator"})
	seriesVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "series_outcome_total",
		Help:      "Total number of concluded series by outcome.",
	}, []string{"coordinator", "outcome"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if startedVec, err = registerCollector(reg, startedVec); err != nil {
		return nil, err
	}
	if abortedVec, err = registerCollector(reg, abortedVec); err != nil {
		return nil, err
	}
	if ignoredVec, err = registerCollector(reg, ignoredVec); err != nil {
		return nil, err
	}
	if seriesVec, err = registerCollector(reg, seriesVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskStartedTotal:    startedVec,
		taskAbortedTotal:    abortedVec,
		taskIgnoredTotal:    ignoredVec,
		seriesOutcomeTotal:  seriesVec,
	}, nil
}

// RecordTaskStarted counts invocations entering the active slot.
func (m *MetricsExporter) RecordTaskStarted(coordinatorName string) {
	if m == nil {
		return
	}
	m.taskStartedTotal.WithLabelValues(normalizeLabel(coordinatorName, "unknown")).Inc()
}

// RecordTaskDuration records invocation run time.
func (m *MetricsExporter) RecordTaskDuration(coordinatorName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(coordinatorName, "unknown")).Observe(duration.Seconds())
}

// RecordTaskAborted counts cancelled invocations.
func (m *MetricsExporter) RecordTaskAborted(coordinatorName string, reason string) {
	if m == nil {
		return
	}
	m.taskAbortedTotal.WithLabelValues(normalizeLabel(coordinatorName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordTaskIgnored counts Run calls dropped by the deferral policy.
func (m *MetricsExporter) RecordTaskIgnored(coordinatorName string) {
	if m == nil {
		return
	}
	m.taskIgnoredTotal.WithLabelValues(normalizeLabel(coordinatorName, "unknown")).Inc()
}

// RecordSeriesOutcome counts concluded series by outcome.
func (m *MetricsExporter) RecordSeriesOutcome(coordinatorName string, outcome string) {
	if m == nil {
		return
	}
	m.seriesOutcomeTotal.WithLabelValues(normalizeLabel(coordinatorName, "unknown"), normalizeLabel(outcome, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
