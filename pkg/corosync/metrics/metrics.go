// Package metrics exposes Prometheus collectors for the corosync bindings.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "corosync"

var (
	once sync.Once

	NativeCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "native_calls_total",
		Help:      "Total native library calls by subsystem, operation and result code",
	}, []string{"subsystem", "op", "result"})

	Callbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callbacks_total",
		Help:      "Total callbacks routed to a registered handler",
	}, []string{"subsystem", "kind"})

	CallbacksDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callbacks_dropped_total",
		Help:      "Total callbacks dropped because their handle was not registered",
	}, []string{"subsystem", "kind"})

	OpenHandles = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_handles",
		Help:      "Number of initialized, not yet finalized handles",
	}, []string{"subsystem"})

	DispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent inside native dispatch calls",
		Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	}, []string{"subsystem", "flags"})

	IterationCleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "iteration_cleanup_failures_total",
		Help:      "Total iteration cursors whose native release failed",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		NativeCalls,
		Callbacks,
		CallbacksDropped,
		OpenHandles,
		DispatchDuration,
		IterationCleanupFailures,
	}
}

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
	once.Do(func() {
		for _, c := range collectors() {
			prometheus.MustRegister(c)
		}
	})
}

// RegisterWith registers metrics into reg. Unlike Register it reports
// duplicate registration instead of ignoring it.
func RegisterWith(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveCall counts one native call and its result code name.
func ObserveCall(subsystem, op, result string) {
	NativeCalls.WithLabelValues(subsystem, op, result).Inc()
}
