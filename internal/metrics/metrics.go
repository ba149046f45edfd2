package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// UnitEvents counts unit-stream events observed by the telemetry
	// observer, labeled by their Go type (start/update/completed).
	UnitEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xfer",
			Name:      "unit_events_total",
			Help:      "Count of unit-stream events processed by the telemetry observer.",
		},
		[]string{"kind", "type"},
	)

	// ProgressUpdatesThrottled counts didWrite callbacks the throttle
	// decided not to surface as a UnitUpdate.
	ProgressUpdatesThrottled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xfer",
			Name:      "progress_updates_throttled_total",
			Help:      "Progress callbacks suppressed by the throttle before reaching a unit stream.",
		},
		[]string{"kind"},
	)

	// TransferOutcomes counts terminal record transitions by outcome.
	TransferOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xfer",
			Name:      "transfer_outcomes_total",
			Help:      "Terminal outcomes of transfer records.",
		},
		[]string{"kind", "outcome"},
	)

	// AdapterTaskLatency times an HTTP task adapter task from Resume to
	// its terminal callback.
	AdapterTaskLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xfer",
			Name:      "adapter_task_latency_seconds",
			Help:      "Latency of an HTTP task adapter task from resume to completion.",
		},
		[]string{"kind"},
	)

	// GateOccupancy reports how many records are currently Running
	// against a coordinator's concurrency gate.
	GateOccupancy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xfer",
			Name:      "gate_occupancy",
			Help:      "Records currently running under a coordinator's concurrency gate.",
		},
		[]string{"kind"},
	)
)

// Register registers the engine's metrics into the default registry.
func Register() {
	prometheus.MustRegister(UnitEvents, ProgressUpdatesThrottled, TransferOutcomes, AdapterTaskLatency, GateOccupancy)
}
