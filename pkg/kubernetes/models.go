package kubernetes

import (
	"time"
)

// PodResources holds the summed container requests and limits of one running pod.
// CPU values are nanocores, memory values are bytes.
type PodResources struct {
	Namespace  string `json:"namespace"`
	Pod        string `json:"pod"`
	CPURequest int64  `json:"cpuRequest"`
	CPULimit   int64  `json:"cpuLimit"`
	MemRequest int64  `json:"memRequest"`
	MemLimit   int64  `json:"memLimit"`
}

// PodUsage holds the summed container usage reported by metrics.k8s.io for one pod.
type PodUsage struct {
	Namespace string `json:"namespace"`
	Pod       string `json:"pod"`
	CPU       int64  `json:"cpu"`
	Memory    int64  `json:"memory"`
}

// Capacity is the summed node capacity of the cluster.
type Capacity struct {
	CPU    int64 `json:"cpu"`
	Memory int64 `json:"memory"`
	Nodes  int   `json:"nodes"`
}

// Snapshot is the raw result of one collection.
type Snapshot struct {
	Resources        []PodResources
	Usage            []PodUsage
	Capacity         Capacity
	MetricsAvailable bool
	CollectedAt      time.Time
}
