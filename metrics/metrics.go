// Package metrics exposes Prometheus instrumentation for discovery runs.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "nano_inventory_"

	ResultSuccess     = "success"
	ResultUnreachable = "unreachable"
	ResultNotFound    = "device_not_found"
	ResultError       = "error"
)

// Tuple error reasons.
const (
	ReasonDecode      = "decode"
	ReasonDetailFetch = "detail_fetch"
	ReasonDuplicate   = "duplicate_key"
	ReasonStore       = "store"
)

// TerminalCounter reports the number of persisted terminals.
type TerminalCounter interface {
	CountTerminals(ctx context.Context) (int64, error)
}

var (
	registerOnce sync.Once

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runPhase      *prometheus.GaugeVec
	walkRows      prometheus.Histogram
	terminalsSeen *prometheus.CounterVec
	tupleErrors   *prometheus.CounterVec
	entityCreated *prometheus.CounterVec
)

// Init registers discovery metrics on reg. Only the first call has effect.
// counter may be nil; when set it backs an inventory size gauge.
func Init(reg prometheus.Registerer, counter TerminalCounter) {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "discovery_runs_total",
				Help: "Total discovery runs by result",
			},
			[]string{"result"},
		)
		runDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "discovery_duration_seconds",
				Help:    "Discovery run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		runPhase = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "discovery_phase",
				Help: "Current discovery phase per device (ordinal)",
			},
			[]string{"device"},
		)
		walkRows = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "discovery_walk_rows",
				Help:    "Rows returned by the terminal status walk",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		)
		terminalsSeen = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "terminals_total",
				Help: "Terminals reconciled by outcome",
			},
			[]string{"outcome"},
		)
		tupleErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tuple_errors_total",
				Help: "Per-terminal reconciliation errors by reason",
			},
			[]string{"reason"},
		)
		entityCreated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "hierarchy_created_total",
				Help: "Slots and ports materialized by discovery",
			},
			[]string{"kind"},
		)

		reg.MustRegister(
			runsTotal,
			runDuration,
			runPhase,
			walkRows,
			terminalsSeen,
			tupleErrors,
			entityCreated,
		)

		if counter != nil {
			reg.MustRegister(prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: metricPrefix + "inventory_terminals",
					Help: "Terminals currently held in the inventory",
				},
				func() float64 {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					n, err := counter.CountTerminals(ctx)
					if err != nil || n < 0 {
						return 0
					}
					return float64(n)
				},
			))
		}
	})
}

// ObserveRun records one finished discovery run.
func ObserveRun(result string, duration time.Duration) {
	if result == "" {
		result = ResultError
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(result).Inc()
	}
	if runDuration != nil {
		runDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// SetPhase exports the ordinal of the current run phase for a device.
func SetPhase(device string, phase int) {
	if runPhase != nil {
		runPhase.WithLabelValues(device).Set(float64(phase))
	}
}

// ObserveWalk records the size of a status walk.
func ObserveWalk(rows int) {
	if walkRows != nil {
		walkRows.Observe(float64(rows))
	}
}

// AddTerminals counts reconciled terminals.
func AddTerminals(created, updated int) {
	if terminalsSeen == nil {
		return
	}
	if created > 0 {
		terminalsSeen.WithLabelValues("created").Add(float64(created))
	}
	if updated > 0 {
		terminalsSeen.WithLabelValues("updated").Add(float64(updated))
	}
}

// IncTupleError counts one skipped tuple.
func IncTupleError(reason string) {
	if reason == "" {
		reason = ReasonStore
	}
	if tupleErrors != nil {
		tupleErrors.WithLabelValues(reason).Inc()
	}
}

// AddHierarchyCreated counts lazily created slots and ports.
func AddHierarchyCreated(slots, ports int) {
	if entityCreated == nil {
		return
	}
	if slots > 0 {
		entityCreated.WithLabelValues("slot").Add(float64(slots))
	}
	if ports > 0 {
		entityCreated.WithLabelValues("port").Add(float64(ports))
	}
}
