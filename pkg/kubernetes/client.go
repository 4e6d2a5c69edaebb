package kubernetes

import (
	"fmt"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Clients bundles the API clients the collector reads from.
type Clients struct {
	RESTConfig *rest.Config
	Core       kubernetes.Interface
	Metrics    metricsclientset.Interface
}

// RESTConfig resolves a REST config the way kubectl does: an explicit kubeconfig
// path, then KUBECONFIG and ~/.kube/config, then the in-cluster service account.
func RESTConfig(config *Config) (*rest.Config, error) {
	flags := genericclioptions.NewConfigFlags(true)
	*flags.KubeConfig = config.Kubeconfig
	*flags.Context = config.Context

	restConfig, err := flags.ToRESTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	if config.Timeout > 0 {
		restConfig.Timeout = config.Timeout
	}
	klog.V(2).Infof("Using API server %s", restConfig.Host)
	return restConfig, nil
}

// NewClients builds the core and metrics.k8s.io clientsets for config.
func NewClients(config *Config) (*Clients, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	restConfig, err := RESTConfig(config)
	if err != nil {
		return nil, err
	}

	core, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	metrics, err := metricsclientset.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics clientset: %w", err)
	}

	return &Clients{
		RESTConfig: restConfig,
		Core:       core,
		Metrics:    metrics,
	}, nil
}
