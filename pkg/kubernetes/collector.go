package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/pager"
	"k8s.io/klog/v2"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"
)

// ErrMetricsUnavailable is returned when the cluster does not serve metrics.k8s.io.
var ErrMetricsUnavailable = errors.New("metrics API is not available")

// Collector reads pods, pod metrics and nodes from the API server
type Collector struct {
	clientset kubernetes.Interface
	metrics   metricsclientset.Interface
	config    *Config
	now       func() time.Time
}

// NewCollector creates a new Collector
func NewCollector(clientset kubernetes.Interface, metrics metricsclientset.Interface, config *Config) *Collector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Collector{
		clientset: clientset,
		metrics:   metrics,
		config:    config,
		now:       time.Now,
	}
}

// Collect runs the pod, usage and node queries concurrently and returns their
// combined result. A missing metrics API degrades to zero usage.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	snapshot := &Snapshot{MetricsAvailable: true}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resources, err := c.PodResources(gctx)
		if err != nil {
			return err
		}
		snapshot.Resources = resources
		return nil
	})

	g.Go(func() error {
		usage, err := c.PodUsage(gctx)
		if errors.Is(err, ErrMetricsUnavailable) {
			klog.Warningf("Pod metrics unavailable, usage columns will be zero: %v", err)
			snapshot.MetricsAvailable = false
			return nil
		}
		if err != nil {
			return err
		}
		snapshot.Usage = usage
		return nil
	})

	g.Go(func() error {
		capacity, err := c.Capacity(gctx)
		if err != nil {
			return err
		}
		snapshot.Capacity = capacity
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot.CollectedAt = c.now()
	klog.V(1).Infof("Collected %d running pods, %d pod metrics, %d nodes",
		len(snapshot.Resources), len(snapshot.Usage), snapshot.Capacity.Nodes)
	return snapshot, nil
}

// PodResources lists running pods in all namespaces and sums their container
// requests and limits.
func (c *Collector) PodResources(ctx context.Context) ([]PodResources, error) {
	p := c.newPager(func(ctx context.Context, opts metav1.ListOptions) (runtime.Object, error) {
		return c.clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, opts)
	})

	var result []PodResources
	err := p.EachListItem(ctx, metav1.ListOptions{}, func(obj runtime.Object) error {
		pod, ok := obj.(*corev1.Pod)
		if !ok {
			return fmt.Errorf("unexpected object type %T in pod list", obj)
		}
		if pr, ok := podResources(pod); ok {
			result = append(result, pr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	klog.V(2).Infof("Summed resources of %d running pods", len(result))
	return result, nil
}

// podResources reports false for pods that must not contribute to the summary.
func podResources(pod *corev1.Pod) (PodResources, bool) {
	if pod.Status.Phase != corev1.PodRunning || len(pod.Spec.Containers) == 0 {
		return PodResources{}, false
	}

	pr := PodResources{Namespace: pod.Namespace, Pod: pod.Name}
	for _, container := range pod.Spec.Containers {
		requests := container.Resources.Requests
		limits := container.Resources.Limits

		pr.CPURequest += nanocores(requests, corev1.ResourceCPU)
		pr.CPULimit += nanocores(limits, corev1.ResourceCPU)
		pr.MemRequest += bytesOf(requests, corev1.ResourceMemory)
		pr.MemLimit += bytesOf(limits, corev1.ResourceMemory)
	}
	return pr, true
}

// PodUsage lists PodMetrics in all namespaces and sums container usage per pod.
func (c *Collector) PodUsage(ctx context.Context) ([]PodUsage, error) {
	if c.metrics == nil {
		return nil, ErrMetricsUnavailable
	}

	list, err := c.metrics.MetricsV1beta1().PodMetricses(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) || apierrors.IsServiceUnavailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
		}
		return nil, fmt.Errorf("failed to list pod metrics: %w", err)
	}

	result := make([]PodUsage, 0, len(list.Items))
	for _, item := range list.Items {
		pu := PodUsage{Namespace: item.Namespace, Pod: item.Name}
		for _, container := range item.Containers {
			pu.CPU += nanocores(container.Usage, corev1.ResourceCPU)
			pu.Memory += bytesOf(container.Usage, corev1.ResourceMemory)
		}
		result = append(result, pu)
	}
	return result, nil
}

// Capacity lists nodes and sums their cpu and memory from the configured source.
func (c *Collector) Capacity(ctx context.Context) (Capacity, error) {
	p := c.newPager(func(ctx context.Context, opts metav1.ListOptions) (runtime.Object, error) {
		return c.clientset.CoreV1().Nodes().List(ctx, opts)
	})

	var capacity Capacity
	err := p.EachListItem(ctx, metav1.ListOptions{}, func(obj runtime.Object) error {
		node, ok := obj.(*corev1.Node)
		if !ok {
			return fmt.Errorf("unexpected object type %T in node list", obj)
		}
		list := node.Status.Capacity
		if c.config.CapacitySource == CapacitySourceAllocatable {
			list = node.Status.Allocatable
		}
		capacity.CPU += nanocores(list, corev1.ResourceCPU)
		capacity.Memory += bytesOf(list, corev1.ResourceMemory)
		capacity.Nodes++
		return nil
	})
	if err != nil {
		return Capacity{}, fmt.Errorf("failed to list nodes: %w", err)
	}
	return capacity, nil
}

func (c *Collector) newPager(fn pager.ListPageFunc) *pager.ListPager {
	p := pager.New(fn)
	p.PageSize = c.config.PageSize
	return p
}

// nanocores returns the named quantity in nanocores, 0 when absent.
func nanocores(list corev1.ResourceList, name corev1.ResourceName) int64 {
	q, ok := list[name]
	if !ok {
		return 0
	}
	return q.ScaledValue(resource.Nano)
}

// bytesOf returns the named quantity in bytes, 0 when absent.
func bytesOf(list corev1.ResourceList, name corev1.ResourceName) int64 {
	q, ok := list[name]
	if !ok {
		return 0
	}
	return q.Value()
}
