// Package stats exports utilization reports as Prometheus metrics.
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sefcom/clusterutils/pkg/utilization"
)

// Label values of the kind label.
const (
	KindRequest = "request"
	KindLimit   = "limit"
	KindUsage   = "usage"
)

// MetricsRecorder handles recording metrics
type MetricsRecorder struct {
	namespaceCPU    *prometheus.GaugeVec
	namespaceMemory *prometheus.GaugeVec
	namespacePct    *prometheus.GaugeVec

	capacityCPU      prometheus.Gauge
	capacityMemory   prometheus.Gauge
	nodes            prometheus.Gauge
	metricsAvailable prometheus.Gauge
	lastCollection   prometheus.Gauge

	collections        *prometheus.CounterVec
	collectionDuration prometheus.Histogram
}

// NewMetricsRecorder creates a new metrics recorder registered on reg
func NewMetricsRecorder(reg prometheus.Registerer) *MetricsRecorder {
	factory := promauto.With(reg)

	return &MetricsRecorder{
		namespaceCPU: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sc_utilization_namespace_cpu_nanocores",
				Help: "CPU requested, limited or used by running pods of a namespace, in nanocores",
			},
			[]string{"namespace", "kind"},
		),
		namespaceMemory: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sc_utilization_namespace_memory_bytes",
				Help: "Memory requested, limited or used by running pods of a namespace, in bytes",
			},
			[]string{"namespace", "kind"},
		),
		namespacePct: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sc_utilization_namespace_capacity_percent",
				Help: "Namespace requests, limits or usage as a percentage of cluster capacity",
			},
			[]string{"namespace", "resource", "kind"},
		),
		capacityCPU: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sc_utilization_cluster_capacity_cpu_nanocores",
				Help: "Summed node CPU capacity in nanocores",
			},
		),
		capacityMemory: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sc_utilization_cluster_capacity_memory_bytes",
				Help: "Summed node memory capacity in bytes",
			},
		),
		nodes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sc_utilization_cluster_nodes",
				Help: "Number of nodes counted in cluster capacity",
			},
		),
		metricsAvailable: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sc_utilization_metrics_available",
				Help: "1 if metrics.k8s.io answered during the last collection, 0 otherwise",
			},
		),
		lastCollection: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sc_utilization_last_collection_timestamp_seconds",
				Help: "Unix time of the last successful collection",
			},
		),
		collections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sc_utilization_collections_total",
				Help: "Total number of collections",
			},
			[]string{"status"},
		),
		collectionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sc_utilization_collection_duration_seconds",
				Help:    "Collection duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}
}

// RecordReport replaces the namespace series with the rows of report, so
// namespaces that disappeared stop being exported.
func (mr *MetricsRecorder) RecordReport(report *utilization.Report) {
	mr.namespaceCPU.Reset()
	mr.namespaceMemory.Reset()
	mr.namespacePct.Reset()

	for _, row := range report.NamespaceRows() {
		t, p := row.Totals, row.Percent

		mr.namespaceCPU.WithLabelValues(row.Name, KindRequest).Set(float64(t.CPURequest))
		mr.namespaceCPU.WithLabelValues(row.Name, KindLimit).Set(float64(t.CPULimit))
		mr.namespaceCPU.WithLabelValues(row.Name, KindUsage).Set(float64(t.CPUUsage))

		mr.namespaceMemory.WithLabelValues(row.Name, KindRequest).Set(float64(t.MemRequest))
		mr.namespaceMemory.WithLabelValues(row.Name, KindLimit).Set(float64(t.MemLimit))
		mr.namespaceMemory.WithLabelValues(row.Name, KindUsage).Set(float64(t.MemUsage))

		mr.namespacePct.WithLabelValues(row.Name, "cpu", KindRequest).Set(p.CPURequest)
		mr.namespacePct.WithLabelValues(row.Name, "cpu", KindLimit).Set(p.CPULimit)
		mr.namespacePct.WithLabelValues(row.Name, "cpu", KindUsage).Set(p.CPUUsage)
		mr.namespacePct.WithLabelValues(row.Name, "memory", KindRequest).Set(p.MemRequest)
		mr.namespacePct.WithLabelValues(row.Name, "memory", KindLimit).Set(p.MemLimit)
		mr.namespacePct.WithLabelValues(row.Name, "memory", KindUsage).Set(p.MemUsage)
	}

	mr.capacityCPU.Set(float64(report.Capacity.CPU))
	mr.capacityMemory.Set(float64(report.Capacity.Memory))
	mr.nodes.Set(float64(report.Capacity.Nodes))

	if report.MetricsAvailable {
		mr.metricsAvailable.Set(1)
	} else {
		mr.metricsAvailable.Set(0)
	}
	if !report.GeneratedAt.IsZero() {
		mr.lastCollection.Set(float64(report.GeneratedAt.Unix()))
	}
}

// RecordCollection records the outcome of one collection
func (mr *MetricsRecorder) RecordCollection(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	mr.collections.WithLabelValues(status).Inc()
	if success {
		mr.collectionDuration.Observe(duration.Seconds())
	}
}
