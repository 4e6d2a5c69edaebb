//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sefcom/clusterutils/pkg/kubernetes"
	"github.com/sefcom/clusterutils/pkg/rbac"
	"github.com/sefcom/clusterutils/pkg/render"
	"github.com/sefcom/clusterutils/pkg/server"
	"github.com/sefcom/clusterutils/pkg/stats"
	"github.com/sefcom/clusterutils/pkg/utilization"
)

var _ = Describe("K3D Integration Tests", func() {
	var (
		k3dContext string
		clients    *kubernetes.Clients
		config     *kubernetes.Config
	)

	BeforeEach(func() {
		k3dContext = os.Getenv("K3D_CONTEXT")
		if k3dContext == "" {
			k3dContext = "k3d-sc-utilization"
		}

		// Verify k3d cluster exists
		cmd := exec.Command("kubectl", "cluster-info", "--context", k3dContext)
		Expect(cmd.Run()).To(Succeed(), "k3d cluster should be running. Run 'k3d cluster create sc-utilization' first")

		config = kubernetes.DefaultConfig()
		config.Context = k3dContext

		var err error
		clients, err = kubernetes.NewClients(config)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Collection", func() {
		It("should collect capacity and system namespaces", func() {
			collector := kubernetes.NewCollector(clients.Core, clients.Metrics, config)

			snapshot, err := collector.Collect(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(snapshot.Capacity.Nodes).To(BeNumerically(">=", 1))
			Expect(snapshot.Capacity.CPU).To(BeNumerically(">", 0))

			report := utilization.BuildReport(snapshot, utilization.Options{SortBy: utilization.SortCPURequest})
			Expect(report.NamespaceRows()).NotTo(BeEmpty())

			var names []string
			for _, row := range report.NamespaceRows() {
				names = append(names, row.Name)
			}
			Expect(names).To(ContainElement("kube-system"))

			GinkgoWriter.Printf("Metrics available: %v\n", snapshot.MetricsAvailable)
		})

		It("should page through pods with a small page size", func() {
			small := *config
			small.PageSize = 1
			collector := kubernetes.NewCollector(clients.Core, clients.Metrics, &small)
			full := kubernetes.NewCollector(clients.Core, clients.Metrics, config)

			paged, err := collector.PodResources(context.Background())
			Expect(err).NotTo(HaveOccurred())
			all, err := full.PodResources(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(paged).To(HaveLen(len(all)))
		})

		It("should render the table and CSV", func() {
			collector := kubernetes.NewCollector(clients.Core, clients.Metrics, config)
			snapshot, err := collector.Collect(context.Background())
			Expect(err).NotTo(HaveOccurred())
			report := utilization.BuildReport(snapshot, utilization.Options{})

			var buf bytes.Buffer
			Expect(render.Render(&buf, report, render.FormatTable, render.Options{Color: render.ColorNever})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("Capacity"))

			buf.Reset()
			Expect(render.Render(&buf, report, render.FormatCSV, render.Options{})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("Total Used,"))
		})
	})

	Describe("RBAC", func() {
		It("should grant the kubeconfig user every mandatory permission", func() {
			warnings, err := rbac.VerifyPermissions(context.Background(), clients.Core)
			Expect(err).NotTo(HaveOccurred())
			GinkgoWriter.Printf("RBAC warnings: %v\n", warnings)
		})
	})

	Describe("Server", func() {
		It("should serve a fresh report and metrics", func() {
			registry := prometheus.NewRegistry()
			collector := kubernetes.NewCollector(clients.Core, clients.Metrics, config)
			refresher := server.NewRefresher(collector, stats.NewMetricsRecorder(registry), utilization.Options{}, time.Minute)
			Expect(refresher.Refresh(context.Background())).To(Succeed())

			ts := httptest.NewServer(server.NewRouter(refresher, registry))
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/api/v1/utilization")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var report utilization.Report
			Expect(json.NewDecoder(resp.Body).Decode(&report)).To(Succeed())
			Expect(report.Capacity.Nodes).To(BeNumerically(">=", 1))

			metrics, err := http.Get(ts.URL + "/metrics")
			Expect(err).NotTo(HaveOccurred())
			defer metrics.Body.Close()
			body, err := io.ReadAll(metrics.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("sc_utilization_cluster_nodes"))
		})
	})
})
