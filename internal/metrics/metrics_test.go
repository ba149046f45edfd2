package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(UnitEvents, TransferOutcomes, GateOccupancy)

	UnitEvents.WithLabelValues("download", "start").Inc()
	TransferOutcomes.WithLabelValues("download", "completed").Add(2)
	GateOccupancy.WithLabelValues("download").Set(3)

	expectedEvents := `# HELP xfer_unit_events_total Count of unit-stream events processed by the telemetry observer.
# TYPE xfer_unit_events_total counter
xfer_unit_events_total{kind="download",type="start"} 1
`
	if err := testutil.CollectAndCompare(UnitEvents, strings.NewReader(expectedEvents)); err != nil {
		t.Fatalf("unexpected unit events metric: %v", err)
	}

	expectedOutcomes := `# HELP xfer_transfer_outcomes_total Terminal outcomes of transfer records.
# TYPE xfer_transfer_outcomes_total counter
xfer_transfer_outcomes_total{kind="download",outcome="completed"} 2
`
	if err := testutil.CollectAndCompare(TransferOutcomes, strings.NewReader(expectedOutcomes)); err != nil {
		t.Fatalf("unexpected outcomes metric: %v", err)
	}

	expectedGauge := `# HELP xfer_gate_occupancy Records currently running under a coordinator's concurrency gate.
# TYPE xfer_gate_occupancy gauge
xfer_gate_occupancy{kind="download"} 3
`
	if err := testutil.CollectAndCompare(GateOccupancy, strings.NewReader(expectedGauge)); err != nil {
		t.Fatalf("unexpected gate occupancy gauge: %v", err)
	}
}

func TestAdapterTaskLatencyHistogram(t *testing.T) {
	hist := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xfer",
			Name:      "adapter_task_latency_seconds",
			Help:      "Latency of an HTTP task adapter task from resume to completion.",
		},
		[]string{"kind"},
	)

	hist.WithLabelValues("download").Observe(0.03)
	hist.WithLabelValues("download").Observe(0.6)

	expected := `# HELP xfer_adapter_task_latency_seconds Latency of an HTTP task adapter task from resume to completion.
# TYPE xfer_adapter_task_latency_seconds histogram
xfer_adapter_task_latency_seconds_bucket{kind="download",le="0.005"} 0
xfer_adapter_task_latency_seconds_bucket{kind="download",le="0.01"} 0
xfer_adapter_task_latency_seconds_bucket{kind="download",le="0.025"} 0
xfer_adapter_task_latency_seconds_bucket{kind="download",le="0.05"} 1
xfer_adapter_task_latency_seconds_bucket{kind="download",le="0.1"} 1
xfer_adapter_task_latency_seconds_bucket{kind="download",le="0.25"} 1
xfer_adapter_task_latency_seconds_bucket{kind="download",le="0.5"} 1
xfer_adapter_task_latency_seconds_bucket{kind="download",le="1"} 2
xfer_adapter_task_latency_seconds_bucket{kind="download",le="2.5"} 2
xfer_adapter_task_latency_seconds_bucket{kind="download",le="5"} 2
xfer_adapter_task_latency_seconds_bucket{kind="download",le="10"} 2
xfer_adapter_task_latency_seconds_bucket{kind="download",le="+Inf"} 2
xfer_adapter_task_latency_seconds_sum{kind="download"} 0.63
xfer_adapter_task_latency_seconds_count{kind="download"} 2
`
	if err := testutil.CollectAndCompare(hist, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected histogram: %v", err)
	}
}
