package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/sefcom/clusterutils/pkg/kubernetes"
	"github.com/sefcom/clusterutils/pkg/render"
	"github.com/sefcom/clusterutils/pkg/utilization"
)

// reportOptions holds the parsed command-line flags.
type reportOptions struct {
	Kubeconfig     string
	Context        string
	CapacitySource string
	PageSize       int64
	Timeout        time.Duration
	SortBy         string
	Namespaces     []string

	Output string
	CSV    bool
	Header bool
	Color  string
}

var (
	options   = &reportOptions{}
	verbosity int

	// newClients is swapped out in tests.
	newClients = kubernetes.NewClients
)

var rootCmd = &cobra.Command{
	Use:   "sc-utilization",
	Short: "Show per-namespace CPU and memory utilization of a Kubernetes cluster",
	Long: `sc-utilization sums the CPU and memory requests, limits and actual usage of
running pods per namespace and shows each as a percentage of total node capacity.

Usage comes from metrics.k8s.io (metrics-server). When it is not available the
usage columns are zero. A "Total Used" row and a "Capacity" row close the table.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReport(cmd.Context(), cmd.OutOrStdout(), options)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version reported by --version and the version command
func SetVersion(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&options.Kubeconfig, "kubeconfig", getEnvOrDefault("SC_UTILIZATION_KUBECONFIG", ""), "Path to the kubeconfig file (defaults to KUBECONFIG, ~/.kube/config, then in-cluster)")
	pf.StringVar(&options.Context, "context", getEnvOrDefault("SC_UTILIZATION_CONTEXT", ""), "Kubeconfig context to use")
	pf.StringVar(&options.CapacitySource, "capacity-source", getEnvOrDefault("SC_UTILIZATION_CAPACITY_SOURCE", string(kubernetes.CapacitySourceCapacity)), "Node field summed as cluster capacity: capacity or allocatable")
	pf.Int64Var(&options.PageSize, "page-size", getEnvInt64OrDefault("SC_UTILIZATION_PAGE_SIZE", kubernetes.DefaultPageSize), "Items per list request (0 disables pagination)")
	pf.DurationVar(&options.Timeout, "timeout", getEnvDurationOrDefault("SC_UTILIZATION_TIMEOUT", kubernetes.DefaultTimeout), "Timeout for one collection")
	pf.StringVarP(&options.SortBy, "sort-by", "s", getEnvOrDefault("SC_UTILIZATION_SORT_BY", ""), "Sort namespaces descending by: "+strings.Join(utilization.SortKeyNames(), ", "))
	pf.StringSliceVarP(&options.Namespaces, "namespace", "n", nil, "Only show these namespaces (repeatable)")
	pf.IntVar(&verbosity, "verbosity", 0, "Log verbosity (klog level)")

	f := rootCmd.Flags()
	f.StringVarP(&options.Output, "output", "o", getEnvOrDefault("SC_UTILIZATION_OUTPUT", string(render.FormatTable)), "Output format: "+strings.Join(render.FormatNames(), ", "))
	f.BoolVar(&options.CSV, "csv", false, "Output data as CSV (same as -o csv)")
	f.BoolVar(&options.Header, "header", false, "Write a header line in CSV output")
	f.StringVar(&options.Color, "color", getEnvOrDefault("SC_UTILIZATION_COLOR", string(render.ColorAuto)), "Colorize the table: auto, always, never")
	rootCmd.MarkFlagsMutuallyExclusive("csv", "output")
}

// setupLogging routes --verbosity into klog.
func setupLogging(_ *cobra.Command, _ []string) error {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	if err := fs.Set("v", strconv.Itoa(verbosity)); err != nil {
		return fmt.Errorf("invalid verbosity: %w", err)
	}
	return nil
}

// kubeConfig converts the flags into a collector configuration.
func (o *reportOptions) kubeConfig() (*kubernetes.Config, error) {
	source, err := kubernetes.ParseCapacitySource(o.CapacitySource)
	if err != nil {
		return nil, err
	}
	config := &kubernetes.Config{
		Kubeconfig:     o.Kubeconfig,
		Context:        o.Context,
		PageSize:       o.PageSize,
		Timeout:        o.Timeout,
		CapacitySource: source,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// buildOptions converts the flags into report construction options.
func (o *reportOptions) buildOptions() (utilization.Options, error) {
	sortKey, err := utilization.ParseSortKey(o.SortBy)
	if err != nil {
		return utilization.Options{}, err
	}
	return utilization.Options{SortBy: sortKey, Namespaces: o.Namespaces}, nil
}

// renderOptions resolves the output format and styling.
func (o *reportOptions) renderOptions() (render.Format, render.Options, error) {
	format, err := render.ParseFormat(o.Output)
	if err != nil {
		return "", render.Options{}, err
	}
	if o.CSV {
		format = render.FormatCSV
	}
	color, err := render.ParseColorMode(o.Color)
	if err != nil {
		return "", render.Options{}, err
	}
	return format, render.Options{Color: color, Header: o.Header}, nil
}

// collector builds the clients and collector described by the flags.
func (o *reportOptions) collector() (*kubernetes.Collector, *kubernetes.Clients, error) {
	config, err := o.kubeConfig()
	if err != nil {
		return nil, nil, err
	}
	clients, err := newClients(config)
	if err != nil {
		return nil, nil, err
	}
	return kubernetes.NewCollector(clients.Core, clients.Metrics, config), clients, nil
}

func runReport(ctx context.Context, out io.Writer, o *reportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Flags are validated before touching the cluster.
	reportOpts, err := o.buildOptions()
	if err != nil {
		return err
	}
	format, renderOpts, err := o.renderOptions()
	if err != nil {
		return err
	}

	collector, _, err := o.collector()
	if err != nil {
		return err
	}

	snapshot, err := collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect utilization: %w", err)
	}

	report := utilization.BuildReport(snapshot, reportOpts)
	return render.Render(out, report, format, renderOpts)
}
