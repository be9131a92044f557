// Package metrics provides Prometheus counters for constrained tables.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus metrics of constrained tables.
type Collector struct {
	// Write metrics
	DocumentsWritten *prometheus.CounterVec
	BatchesRejected  *prometheus.CounterVec

	// Refresh metrics
	Refreshes        *prometheus.CounterVec
	DocumentsScanned *prometheus.CounterVec

	// Constraint metrics
	Violations *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		DocumentsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tinydbc",
				Name:      "documents_written_total",
				Help:      "Total number of documents inserted or updated",
			},
			[]string{"table", "op"},
		),
		BatchesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tinydbc",
				Name:      "batches_rejected_total",
				Help:      "Total number of write batches rejected before reaching the store",
			},
			[]string{"table", "op"},
		),
		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tinydbc",
				Name:      "refreshes_total",
				Help:      "Total number of full-table validation scans",
			},
			[]string{"table", "mode"},
		),
		DocumentsScanned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tinydbc",
				Name:      "documents_scanned_total",
				Help:      "Total number of documents visited by validation scans",
			},
			[]string{"table"},
		),
		Violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tinydbc",
				Name:      "violations_total",
				Help:      "Total number of constraint violations by error code",
			},
			[]string{"table", "code"},
		),
	}
}
