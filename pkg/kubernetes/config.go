// Package kubernetes provides Kubernetes client construction and the cluster-data
// collector used to build utilization reports.
package kubernetes

import (
	"fmt"
	"time"
)

// CapacitySource selects which node status field is summed as cluster capacity.
type CapacitySource string

const (
	// CapacitySourceCapacity sums node status.capacity (the default).
	CapacitySourceCapacity CapacitySource = "capacity"
	// CapacitySourceAllocatable sums node status.allocatable.
	CapacitySourceAllocatable CapacitySource = "allocatable"
)

const (
	// DefaultPageSize is the number of items requested per list call.
	DefaultPageSize int64 = 500
	// DefaultTimeout bounds a single collection.
	DefaultTimeout = 60 * time.Second
)

// Config holds the Kubernetes-specific configuration
type Config struct {
	Kubeconfig     string // empty means KUBECONFIG, ~/.kube/config, then in-cluster
	Context        string
	PageSize       int64
	Timeout        time.Duration
	CapacitySource CapacitySource
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	return &Config{
		PageSize:       DefaultPageSize,
		Timeout:        DefaultTimeout,
		CapacitySource: CapacitySourceCapacity,
	}
}

// ParseCapacitySource converts a flag value into a CapacitySource.
func ParseCapacitySource(s string) (CapacitySource, error) {
	switch CapacitySource(s) {
	case "", CapacitySourceCapacity:
		return CapacitySourceCapacity, nil
	case CapacitySourceAllocatable:
		return CapacitySourceAllocatable, nil
	default:
		return "", fmt.Errorf("unknown capacity source %q (want %q or %q)", s, CapacitySourceCapacity, CapacitySourceAllocatable)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PageSize < 0 {
		return fmt.Errorf("page size cannot be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if _, err := ParseCapacitySource(string(c.CapacitySource)); err != nil {
		return err
	}
	return nil
}
