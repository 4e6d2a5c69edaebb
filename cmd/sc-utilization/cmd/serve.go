package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/sefcom/clusterutils/pkg/server"
	"github.com/sefcom/clusterutils/pkg/stats"
)

var (
	addr     string
	interval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve utilization as JSON and Prometheus metrics",
	Long: `Start an HTTP server that collects utilization on an interval.

Endpoints:
- /api/v1/utilization  latest report as JSON (?sort=<key> re-sorts it)
- /metrics             Prometheus metrics for every namespace
- /healthz, /readyz    liveness and readiness (ready after the first collection)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := &server.Config{
			Addr:     addr,
			Interval: interval,
		}
		if err := config.Validate(); err != nil {
			return err
		}

		reportOpts, err := options.buildOptions()
		if err != nil {
			return err
		}
		collector, _, err := options.collector()
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder := stats.NewMetricsRecorder(registry)

		srv, err := server.New(config, collector, recorder, reportOpts, registry)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		klog.Infof("Starting sc-utilization server on %s", addr)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&addr, "addr", getEnvOrDefault("SC_UTILIZATION_ADDR", ":9090"), "HTTP listen address")
	serveCmd.Flags().DurationVar(&interval, "interval", getEnvDurationOrDefault("SC_UTILIZATION_INTERVAL", 30*time.Second), "Collection interval")
}
