package prometheus

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("taskcoord", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskStarted("coord-a")
	exporter.RecordTaskStarted("coord-a")
	exporter.RecordTaskDuration("coord-a", 250*time.Millisecond)
	exporter.RecordTaskAborted("coord-a", "displaced")
	exporter.RecordTaskIgnored("coord-a")
	exporter.RecordSeriesOutcome("coord-a", "succeeded")

	started := testutil.ToFloat64(exporter.taskStartedTotal.WithLabelValues("coord-a"))
	if started != 2 {
		t.Fatalf("started total = %v, want 2", started)
	}

	aborted := testutil.ToFloat64(exporter.taskAbortedTotal.WithLabelValues("coord-a", "displaced"))
	if aborted != 1 {
		t.Fatalf("aborted total = %v, want 1", aborted)
	}

	ignored := testutil.ToFloat64(exporter.taskIgnoredTotal.WithLabelValues("coord-a"))
	if ignored != 1 {
		t.Fatalf("ignored total = %v, want 1", ignored)
	}

	succeeded := testutil.ToFloat64(exporter.seriesOutcomeTotal.WithLabelValues("coord-a", "succeeded"))
	if succeeded != 1 {
		t.Fatalf("series succeeded total = %v, want 1", succeeded)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("coord-a"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("taskcoord", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("taskcoord", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskIgnored("coord-a")
	second.RecordTaskIgnored("coord-a")

	got := testutil.ToFloat64(first.taskIgnoredTotal.WithLabelValues("coord-a"))
	if got != 2 {
		t.Fatalf("shared ignored counter = %v, want 2", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
