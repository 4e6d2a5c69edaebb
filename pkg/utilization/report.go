// Package utilization aggregates a cluster snapshot into a per-namespace
// utilization report.
package utilization

import (
	"time"

	"github.com/sefcom/clusterutils/pkg/kubernetes"
)

// Row labels for the two summary rows.
const (
	TotalRowName    = "Total Used"
	CapacityRowName = "Capacity"
)

// RowKind tells namespace rows apart from the summary rows.
type RowKind string

const (
	RowNamespace RowKind = "namespace"
	RowTotal     RowKind = "total"
	RowCapacity  RowKind = "capacity"
)

// Totals holds CPU in nanocores and memory in bytes.
type Totals struct {
	CPURequest int64 `json:"cpuRequest"`
	CPULimit   int64 `json:"cpuLimit"`
	CPUUsage   int64 `json:"cpuUsage"`
	MemRequest int64 `json:"memRequest"`
	MemLimit   int64 `json:"memLimit"`
	MemUsage   int64 `json:"memUsage"`
}

// Add returns the field-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		CPURequest: t.CPURequest + o.CPURequest,
		CPULimit:   t.CPULimit + o.CPULimit,
		CPUUsage:   t.CPUUsage + o.CPUUsage,
		MemRequest: t.MemRequest + o.MemRequest,
		MemLimit:   t.MemLimit + o.MemLimit,
		MemUsage:   t.MemUsage + o.MemUsage,
	}
}

// Percentages are each Totals field as a percentage of cluster capacity.
type Percentages struct {
	CPURequest float64 `json:"cpuRequest"`
	CPULimit   float64 `json:"cpuLimit"`
	CPUUsage   float64 `json:"cpuUsage"`
	MemRequest float64 `json:"memRequest"`
	MemLimit   float64 `json:"memLimit"`
	MemUsage   float64 `json:"memUsage"`
}

// Row is one line of the report.
type Row struct {
	Name    string      `json:"name"`
	Kind    RowKind     `json:"kind"`
	Totals  Totals      `json:"totals"`
	Percent Percentages `json:"percent"`
}

// Report is the rendered unit: namespace rows followed by the total and capacity rows.
type Report struct {
	Rows             []Row               `json:"rows"`
	Capacity         kubernetes.Capacity `json:"capacity"`
	MetricsAvailable bool                `json:"metricsAvailable"`
	GeneratedAt      time.Time           `json:"generatedAt"`
}

// Options controls report construction.
type Options struct {
	SortBy     SortKey
	Namespaces []string // empty keeps every namespace
}

// Percent returns value as a percentage of capacity, 0 when capacity is 0.
func Percent(value, capacity int64) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(value) / float64(capacity) * 100
}

func percentages(t Totals, capacity kubernetes.Capacity) Percentages {
	return Percentages{
		CPURequest: Percent(t.CPURequest, capacity.CPU),
		CPULimit:   Percent(t.CPULimit, capacity.CPU),
		CPUUsage:   Percent(t.CPUUsage, capacity.CPU),
		MemRequest: Percent(t.MemRequest, capacity.Memory),
		MemLimit:   Percent(t.MemLimit, capacity.Memory),
		MemUsage:   Percent(t.MemUsage, capacity.Memory),
	}
}

// Aggregate sums the snapshot per namespace. Namespaces are taken from running
// pods only; usage for namespaces without a running pod is dropped.
func Aggregate(snapshot *kubernetes.Snapshot) map[string]Totals {
	totals := make(map[string]Totals)
	for _, pr := range snapshot.Resources {
		t := totals[pr.Namespace]
		t.CPURequest += pr.CPURequest
		t.CPULimit += pr.CPULimit
		t.MemRequest += pr.MemRequest
		t.MemLimit += pr.MemLimit
		totals[pr.Namespace] = t
	}
	for _, pu := range snapshot.Usage {
		t, ok := totals[pu.Namespace]
		if !ok {
			continue
		}
		t.CPUUsage += pu.CPU
		t.MemUsage += pu.Memory
		totals[pu.Namespace] = t
	}
	return totals
}

// BuildReport turns a snapshot into sorted namespace rows plus the
// "Total Used" and "Capacity" rows.
func BuildReport(snapshot *kubernetes.Snapshot, opts Options) *Report {
	keep := make(map[string]bool, len(opts.Namespaces))
	for _, ns := range opts.Namespaces {
		keep[ns] = true
	}

	capacity := snapshot.Capacity
	rows := make([]Row, 0)
	for ns, t := range Aggregate(snapshot) {
		if len(keep) > 0 && !keep[ns] {
			continue
		}
		rows = append(rows, Row{
			Name:    ns,
			Kind:    RowNamespace,
			Totals:  t,
			Percent: percentages(t, capacity),
		})
	}
	SortRows(rows, opts.SortBy)

	var sum Totals
	for _, row := range rows {
		sum = sum.Add(row.Totals)
	}
	rows = append(rows, Row{
		Name:    TotalRowName,
		Kind:    RowTotal,
		Totals:  sum,
		Percent: percentages(sum, capacity),
	})

	rows = append(rows, Row{
		Name: CapacityRowName,
		Kind: RowCapacity,
		Totals: Totals{
			CPURequest: capacity.CPU,
			CPULimit:   capacity.CPU,
			CPUUsage:   capacity.CPU,
			MemRequest: capacity.Memory,
			MemLimit:   capacity.Memory,
			MemUsage:   capacity.Memory,
		},
		Percent: Percentages{
			CPURequest: 100, CPULimit: 100, CPUUsage: 100,
			MemRequest: 100, MemLimit: 100, MemUsage: 100,
		},
	})

	return &Report{
		Rows:             rows,
		Capacity:         capacity,
		MetricsAvailable: snapshot.MetricsAvailable,
		GeneratedAt:      snapshot.CollectedAt,
	}
}

// NamespaceRows returns the rows that are not summary rows.
func (r *Report) NamespaceRows() []Row {
	out := make([]Row, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.Kind == RowNamespace {
			out = append(out, row)
		}
	}
	return out
}

// Resorted returns a copy of r with namespace rows ordered by key. Summary rows
// keep their place at the end.
func (r *Report) Resorted(key SortKey) *Report {
	rows := r.NamespaceRows()
	SortRows(rows, key)
	for _, row := range r.Rows {
		if row.Kind != RowNamespace {
			rows = append(rows, row)
		}
	}
	out := *r
	out.Rows = rows
	return &out
}
