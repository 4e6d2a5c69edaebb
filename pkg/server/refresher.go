// Package server serves utilization reports over HTTP and keeps them fresh.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/sefcom/clusterutils/pkg/kubernetes"
	"github.com/sefcom/clusterutils/pkg/stats"
	"github.com/sefcom/clusterutils/pkg/utilization"
)

const defaultRefreshInterval = 30 * time.Second

// ErrNoReport is returned until the first collection succeeds.
var ErrNoReport = errors.New("no utilization report collected yet")

// SnapshotSource produces cluster snapshots. *kubernetes.Collector implements it.
type SnapshotSource interface {
	Collect(ctx context.Context) (*kubernetes.Snapshot, error)
}

// Refresher periodically collects a snapshot and caches the resulting report
type Refresher struct {
	source   SnapshotSource
	recorder *stats.MetricsRecorder
	options  utilization.Options
	interval time.Duration

	mu      sync.RWMutex
	report  *utilization.Report
	lastErr error
}

// NewRefresher creates a new Refresher. recorder may be nil.
func NewRefresher(source SnapshotSource, recorder *stats.MetricsRecorder, options utilization.Options, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{
		source:   source,
		recorder: recorder,
		options:  options,
		interval: interval,
	}
}

// Refresh runs one collection and swaps in the new report on success. On
// failure the previous report is kept.
func (r *Refresher) Refresh(ctx context.Context) error {
	start := time.Now()
	snapshot, err := r.source.Collect(ctx)
	duration := time.Since(start)

	if r.recorder != nil {
		r.recorder.RecordCollection(err == nil, duration)
	}
	if err != nil {
		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		return err
	}

	report := utilization.BuildReport(snapshot, r.options)
	if r.recorder != nil {
		r.recorder.RecordReport(report)
	}

	r.mu.Lock()
	r.report = report
	r.lastErr = nil
	r.mu.Unlock()

	klog.V(1).Infof("Refreshed utilization report: %d namespaces in %v", len(report.NamespaceRows()), duration.Round(time.Millisecond))
	return nil
}

// Start collects once immediately and then on every interval until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		klog.Errorf("Failed to collect utilization: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				klog.Errorf("Failed to collect utilization: %v", err)
			}
		}
	}
}

// Report returns the latest report, or ErrNoReport joined with the last
// collection error when none has succeeded yet.
func (r *Refresher) Report() (*utilization.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.report == nil {
		if r.lastErr != nil {
			return nil, errors.Join(ErrNoReport, r.lastErr)
		}
		return nil, ErrNoReport
	}
	return r.report, nil
}

// Interval returns the time between collections.
func (r *Refresher) Interval() time.Duration {
	return r.interval
}

// Ready reports whether a report is available.
func (r *Refresher) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.report != nil
}
